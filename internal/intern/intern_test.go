package intern

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutIsIdempotentForByteEqualInputs(t *testing.T) {
	in := New()
	a := in.Put("hello")
	b := in.Put("hello")
	assert.Equal(t, a, b)
}

func TestIndicesAreDenseInInsertionOrder(t *testing.T) {
	in := New()
	words := []string{"foo", "bar", "baz", "foo", "qux"}
	indices := make([]int, len(words))
	for i, w := range words {
		indices[i] = in.Put(w)
	}
	assert.Equal(t, 0, indices[0]) // foo
	assert.Equal(t, 1, indices[1]) // bar
	assert.Equal(t, 2, indices[2]) // baz
	assert.Equal(t, 0, indices[3]) // foo again -> same index
	assert.Equal(t, 3, indices[4]) // qux
	assert.Equal(t, 4, in.Len())
	assert.Equal(t, []string{"foo", "bar", "baz", "qux"}, in.All())
}

func TestSurvivesGrowthPastInitialCapacity(t *testing.T) {
	in := New()
	for i := 0; i < 500; i++ {
		idx := in.Put(fmt.Sprintf("sym_%d", i))
		assert.Equal(t, i, idx)
	}
	for i := 0; i < 500; i++ {
		idx := in.Put(fmt.Sprintf("sym_%d", i))
		assert.Equal(t, i, idx, "re-put after growth must return the original index")
	}
}
