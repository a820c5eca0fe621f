package curriculum

import "fmt"

// TopicIndex maps (unit, topic) coordinates to global topic positions and
// back. The global position — the zero-based index of a topic after
// flattening all units in document order — is the stable key progress
// tracking uses, so it is computed once per curriculum load rather than
// re-derived on every lookup.
type TopicIndex struct {
	positions map[[2]int]int
	topics    []Topic
	coords    [][2]int
}

// NewTopicIndex builds the index for a curriculum.
func NewTopicIndex(c Curriculum) *TopicIndex {
	idx := &TopicIndex{
		positions: make(map[[2]int]int),
	}
	for ui, unit := range c.Units {
		for ti := range unit.Topics {
			pos := len(idx.topics)
			idx.positions[[2]int{ui, ti}] = pos
			idx.topics = append(idx.topics, unit.Topics[ti])
			idx.coords = append(idx.coords, [2]int{ui, ti})
		}
	}
	return idx
}

// Len returns the number of topics in the curriculum.
func (idx *TopicIndex) Len() int {
	return len(idx.topics)
}

// Position returns the global position for unit/topic coordinates.
func (idx *TopicIndex) Position(unit, topic int) (int, error) {
	pos, ok := idx.positions[[2]int{unit, topic}]
	if !ok {
		return 0, fmt.Errorf("no topic at unit %d index %d: %w", unit, topic, ErrNotFound)
	}
	return pos, nil
}

// TopicAt returns the topic at a global position.
func (idx *TopicIndex) TopicAt(pos int) (Topic, error) {
	if pos < 0 || pos >= len(idx.topics) {
		return Topic{}, fmt.Errorf("no topic at position %d: %w", pos, ErrNotFound)
	}
	return idx.topics[pos], nil
}

// CoordsAt returns the (unit, topic) coordinates for a global position.
func (idx *TopicIndex) CoordsAt(pos int) (unit, topic int, err error) {
	if pos < 0 || pos >= len(idx.coords) {
		return 0, 0, fmt.Errorf("no topic at position %d: %w", pos, ErrNotFound)
	}
	return idx.coords[pos][0], idx.coords[pos][1], nil
}

// Topics returns all topics in global-position order.
func (idx *TopicIndex) Topics() []Topic {
	return append([]Topic{}, idx.topics...)
}
