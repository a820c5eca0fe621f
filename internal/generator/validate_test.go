package generator

import (
	"errors"
	"testing"
)

const validQuizJSON = `[
	{"question":"What is H2O?","options":["Water","Salt","Sugar","Oxygen"],"answerIndex":0,"explanation":"H2O is water."},
	{"question":"Boiling point of water at sea level?","options":["90C","100C","110C"],"answerIndex":1,"explanation":"100 degrees Celsius."}
]`

func TestParseQuiz(t *testing.T) {
	quiz, err := ParseQuiz(validQuizJSON)
	if err != nil {
		t.Fatalf("ParseQuiz() error = %v", err)
	}
	if len(quiz) != 2 {
		t.Fatalf("got %d questions, want 2", len(quiz))
	}
	if quiz[0].AnswerIndex != 0 {
		t.Errorf("AnswerIndex = %d, want 0", quiz[0].AnswerIndex)
	}
	if quiz[1].Options[1] != "100C" {
		t.Errorf("option = %q, want 100C", quiz[1].Options[1])
	}
}

func TestParseQuiz_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "The quiz is as follows: ..."},
		{"object not array", `{"question":"q","options":["a","b"],"answerIndex":0}`},
		{"missing options", `[{"question":"q","answerIndex":0}]`},
		{"one option", `[{"question":"q","options":["a"],"answerIndex":0}]`},
		{"answer index out of range", `[{"question":"q","options":["a","b"],"answerIndex":5}]`},
		{"empty array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuiz(tt.raw)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseQuiz() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParseSyllabus(t *testing.T) {
	raw := `{"units":[
		{"title":"Algebra","topics":["Variables","Equations"]},
		{"title":"Geometry","topics":["Angles"]}
	]}`

	units, err := ParseSyllabus(raw)
	if err != nil {
		t.Fatalf("ParseSyllabus() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].Title != "Algebra" {
		t.Errorf("Title = %q, want Algebra", units[0].Title)
	}
	if len(units[1].Topics) != 1 || units[1].Topics[0] != "Angles" {
		t.Errorf("Topics = %v, want [Angles]", units[1].Topics)
	}
}

func TestParseSyllabus_ObjectShapedUnits(t *testing.T) {
	// The model sometimes keys units by index instead of emitting an array.
	raw := `{"units":{
		"0":{"title":"Algebra","topics":["Variables"]},
		"1":{"title":"Geometry","topics":["Angles"]}
	}}`

	units, err := ParseSyllabus(raw)
	if err != nil {
		t.Fatalf("ParseSyllabus() error = %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].Title != "Algebra" || units[1].Title != "Geometry" {
		t.Errorf("unit order = [%q, %q], want [Algebra, Geometry]", units[0].Title, units[1].Title)
	}
}

func TestParseSyllabus_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Unit 1: Algebra"},
		{"missing units", `{"chapters":[]}`},
		{"units is a string", `{"units":"Algebra"}`},
		{"unit missing title", `{"units":[{"topics":["a"]}]}`},
		{"empty units", `{"units":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSyllabus(tt.raw)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseSyllabus() error = %v, want ErrMalformed", err)
			}
		})
	}
}
