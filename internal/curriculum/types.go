// Package curriculum defines the curriculum tree (units and topics), its
// flattened topic index, and the repository that persists curriculum documents.
package curriculum

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTopicXP is awarded for topics that don't carry an explicit XP value.
const DefaultTopicXP = 10

// Question is a single multiple-choice quiz question.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
}

// questionWire accepts both stored shapes: the current one carries a
// zero-based answerIndex, the legacy one carries the correct option's text
// under "answer".
type questionWire struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex *int     `json:"answerIndex"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// UnmarshalJSON decodes a question from either wire shape, normalizing the
// legacy answer-text form to an index.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	q.Question = w.Question
	q.Options = w.Options
	q.Explanation = w.Explanation

	switch {
	case w.AnswerIndex != nil:
		q.AnswerIndex = *w.AnswerIndex
	case w.Answer != "":
		q.AnswerIndex = -1
		for i, opt := range w.Options {
			if opt == w.Answer {
				q.AnswerIndex = i
				break
			}
		}
		if q.AnswerIndex < 0 {
			return fmt.Errorf("answer %q does not match any option", w.Answer)
		}
	default:
		return fmt.Errorf("question %q has no answer indicator", w.Question)
	}

	return nil
}

// Validate checks that the question is answerable.
func (q Question) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q needs at least 2 options, got %d", q.Question, len(q.Options))
	}
	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		return fmt.Errorf("question %q answer index %d out of range [0,%d)", q.Question, q.AnswerIndex, len(q.Options))
	}
	return nil
}

// Topic is a single learnable node: a name, optional HTML notes, an optional
// quiz, and the XP awarded on mastery.
type Topic struct {
	Name  string     `json:"topicName"`
	Notes string     `json:"notes,omitempty"`
	Quiz  []Question `json:"quiz,omitempty"`
	XP    int        `json:"xp,omitempty"`
}

// XPValue returns the topic's XP, falling back to the default.
func (t Topic) XPValue() int {
	if t.XP > 0 {
		return t.XP
	}
	return DefaultTopicXP
}

// HasNotes reports whether the topic already has study notes.
func (t Topic) HasNotes() bool {
	return t.Notes != ""
}

// HasQuiz reports whether the topic already has a non-empty quiz.
func (t Topic) HasQuiz() bool {
	return len(t.Quiz) > 0
}

// Unit is an ordered group of topics under a title. Order is significant:
// it defines the global topic ordering.
type Unit struct {
	Title  string  `json:"title"`
	Topics []Topic `json:"topics"`
}

// Curriculum is one subject's full unit/topic tree. Learners only read it;
// only administrative upload mutates it.
type Curriculum struct {
	ID        string    `json:"id"`
	Board     string    `json:"board"`
	Class     string    `json:"class"`
	Subject   string    `json:"subject"`
	Units     []Unit    `json:"units"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// TopicCount returns the total number of topics across all units.
func (c Curriculum) TopicCount() int {
	n := 0
	for _, u := range c.Units {
		n += len(u.Topics)
	}
	return n
}
