// Package progress folds completed quizzes into per-user mastery and history.
package progress

// IDSet is an insertion-ordered set of entry ids
type IDSet struct {
	ids   []string
	index map[string]struct{}
}

// NewIDSet returns a set holding ids without duplicates
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{index: make(map[string]struct{}, len(ids))}
	s.Add(ids...)
	return s
}

// Add inserts ids not yet present and returns how many were new
func (s *IDSet) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
		added++
	}
	return added
}

func (s *IDSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *IDSet) Len() int { return len(s.ids) }

// IDs returns the members in insertion order
func (s *IDSet) IDs() []string {
	return append([]string{}, s.ids...)
}

// Union returns the members of a followed by the members of b not in a.
func Union(a, b []string) []string {
	s := NewIDSet(a...)
	s.Add(b...)
	return s.IDs()
}

// MasteryPercent is learned as a rounded share of entryCount.
func MasteryPercent(learned, entryCount int) int {
	if entryCount < 1 {
		entryCount = 1
	}
	return (learned*200 + entryCount) / (entryCount * 2)
}
