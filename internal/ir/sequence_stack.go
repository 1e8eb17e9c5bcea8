package ir

import "fmt"

// SequenceStack is spec.md §5's bounded LIFO of growable instruction
// sequences: the lowering engine pushes a fresh sequence whenever it
// enters a nested block (if/else/while/for/function/class body) and
// pops it back into the parent once the block is fully lowered.
//
// Grounded on the sequence-stack bookkeeping google-gapid/gapil/compiler's
// Scope type performs around nested statement lists, adapted to the
// spec's explicit fixed depth bound rather than an unbounded slice.
type SequenceStack struct {
	frames []InstructionSequence
}

func NewSequenceStack() *SequenceStack {
	return &SequenceStack{frames: make([]InstructionSequence, 0, 8)}
}

func (s *SequenceStack) Push() {
	if len(s.frames) >= MaxSequenceDepth {
		panic(fmt.Sprintf("ir: sequence stack exceeded max depth %d", MaxSequenceDepth))
	}
	s.frames = append(s.frames, InstructionSequence{})
}

// Pop removes and returns the top frame.
func (s *SequenceStack) Pop() InstructionSequence {
	n := len(s.frames)
	top := s.frames[n-1]
	s.frames = s.frames[:n-1]
	return top
}

// Emit appends an instruction to the current top frame.
func (s *SequenceStack) Emit(i Instruction) {
	s.frames[len(s.frames)-1].Append(i)
}

func (s *SequenceStack) Depth() int { return len(s.frames) }

func (s *SequenceStack) Top() *InstructionSequence {
	return &s.frames[len(s.frames)-1]
}
