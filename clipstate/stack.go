package clipstate

// Stack keeps saved MatrixClipStates for callers that need save/restore.
// The top entry is the live state.
type Stack struct {
	states []MatrixClipState
}

// NewStack creates a stack whose only entry is initial.
func NewStack(initial MatrixClipState) *Stack {
	states := make([]MatrixClipState, 1, 8) // Pre-allocate for common nesting
	states[0] = initial
	return &Stack{states: states}
}

// Top returns the live state. The pointer is invalidated by the next Save.
func (s *Stack) Top() *MatrixClipState {
	return &s.states[len(s.states)-1]
}

// Save pushes a copy of the live state and returns a func that restores the
// stack to its depth before the call. Call it with defer so every exit path
// restores.
func (s *Stack) Save() (restore func()) {
	depth := len(s.states)
	s.states = append(s.states, s.states[depth-1])
	return func() { s.RestoreToDepth(depth) }
}

// Restore pops the live state. The bottom entry is never popped.
func (s *Stack) Restore() {
	if len(s.states) > 1 {
		s.states = s.states[:len(s.states)-1]
	}
}

// RestoreToDepth pops entries until Depth() == depth. Depths below one and
// above the current depth are no-ops.
func (s *Stack) RestoreToDepth(depth int) {
	if depth < 1 || depth >= len(s.states) {
		return
	}
	s.states = s.states[:depth]
}

// Depth returns the number of entries, including the live one.
func (s *Stack) Depth() int {
	return len(s.states)
}
