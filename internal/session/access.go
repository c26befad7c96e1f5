package session

import "slices"

// CanAccess reports whether the question at index is reachable. Index 0 is
// always reachable; any index at or before the cursor is reachable; beyond
// that, a question unlocks once the question before it has an answer.
func CanAccess(index int, s *Session) bool {
	if s == nil || index < 0 || index >= len(s.questions) {
		return false
	}
	if index == 0 || index <= s.current {
		return true
	}
	_, answered := s.answers[s.questions[index-1].ID]
	return answered
}

// AccessibleIndices lists every reachable index in ascending order.
func AccessibleIndices(s *Session) []int {
	out := make([]int, 0, len(s.questions))
	for i := range s.questions {
		if CanAccess(i, s) {
			out = append(out, i)
		}
	}
	return out
}

// unlockAfter appends idx+1 to the access log the first time question idx
// is answered.
func (s *Session) unlockAfter(idx int) {
	next := idx + 1
	if next >= len(s.questions) || slices.Contains(s.accessOrder, next) {
		return
	}
	s.accessOrder = append(s.accessOrder, next)
}
