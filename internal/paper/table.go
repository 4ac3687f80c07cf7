// Package paper assembles generated questions into an exam paper and stores
// and exports the result.
package paper

import (
	"encoding/json"
	"fmt"
)

// Entry is one question of a paper.
type Entry struct {
	QuestionNumber int               `json:"question_number"`
	Subject        string            `json:"subject"`
	Concept        string            `json:"concept"`
	Weightage      float64           `json:"weightage"`
	QuestionText   string            `json:"question_text"`
	Options        map[string]string `json:"options"`
	Difficulty     string            `json:"difficulty"`
	CorrectAnswer  string            `json:"correct_answer"`
	Explanation    string            `json:"explanation"`
}

// Table is an append-only paper stored column-wise. Its JSON form maps each
// column name to the ordered list of its values.
type Table struct {
	QuestionNumber []int               `json:"question_number"`
	Subject        []string            `json:"subject"`
	Concept        []string            `json:"concept"`
	Weightage      []float64           `json:"weightage"`
	QuestionText   []string            `json:"question_text"`
	Options        []map[string]string `json:"options"`
	Difficulty     []string            `json:"difficulty"`
	CorrectAnswer  []string            `json:"correct_answer"`
	Explanation    []string            `json:"explanation"`
}

// Columns lists the column names in output order.
var Columns = []string{
	"question_number", "subject", "concept", "weightage", "question_text",
	"options", "difficulty", "correct_answer", "explanation",
}

// NewTable returns an empty table whose columns encode as [] rather than null.
func NewTable() *Table {
	return &Table{
		QuestionNumber: []int{},
		Subject:        []string{},
		Concept:        []string{},
		Weightage:      []float64{},
		QuestionText:   []string{},
		Options:        []map[string]string{},
		Difficulty:     []string{},
		CorrectAnswer:  []string{},
		Explanation:    []string{},
	}
}

// Len returns the number of questions.
func (t *Table) Len() int { return len(t.QuestionNumber) }

// Append adds e as the next question. The question number is assigned here,
// continuing from the last one, and returned.
func (t *Table) Append(e Entry) int {
	n := t.Len() + 1
	opts := make(map[string]string, len(e.Options))
	for k, v := range e.Options {
		opts[k] = v
	}
	t.QuestionNumber = append(t.QuestionNumber, n)
	t.Subject = append(t.Subject, e.Subject)
	t.Concept = append(t.Concept, e.Concept)
	t.Weightage = append(t.Weightage, e.Weightage)
	t.QuestionText = append(t.QuestionText, e.QuestionText)
	t.Options = append(t.Options, opts)
	t.Difficulty = append(t.Difficulty, e.Difficulty)
	t.CorrectAnswer = append(t.CorrectAnswer, e.CorrectAnswer)
	t.Explanation = append(t.Explanation, e.Explanation)
	return n
}

// Entry returns question i, 0-based.
func (t *Table) Entry(i int) Entry {
	return Entry{
		QuestionNumber: t.QuestionNumber[i],
		Subject:        t.Subject[i],
		Concept:        t.Concept[i],
		Weightage:      t.Weightage[i],
		QuestionText:   t.QuestionText[i],
		Options:        t.Options[i],
		Difficulty:     t.Difficulty[i],
		CorrectAnswer:  t.CorrectAnswer[i],
		Explanation:    t.Explanation[i],
	}
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := &Table{
		QuestionNumber: append([]int{}, t.QuestionNumber...),
		Subject:        append([]string{}, t.Subject...),
		Concept:        append([]string{}, t.Concept...),
		Weightage:      append([]float64{}, t.Weightage...),
		QuestionText:   append([]string{}, t.QuestionText...),
		Options:        make([]map[string]string, len(t.Options)),
		Difficulty:     append([]string{}, t.Difficulty...),
		CorrectAnswer:  append([]string{}, t.CorrectAnswer...),
		Explanation:    append([]string{}, t.Explanation...),
	}
	for i, opts := range t.Options {
		c.Options[i] = make(map[string]string, len(opts))
		for k, v := range opts {
			c.Options[i][k] = v
		}
	}
	return c
}

// Entries returns the questions row-wise.
func (t *Table) Entries() []Entry {
	out := make([]Entry, t.Len())
	for i := range out {
		out[i] = t.Entry(i)
	}
	return out
}

// validate checks that every column has the same length, which a decoded
// table from an untrusted source may not.
func (t *Table) validate() error {
	n := t.Len()
	lengths := map[string]int{
		"subject":        len(t.Subject),
		"concept":        len(t.Concept),
		"weightage":      len(t.Weightage),
		"question_text":  len(t.QuestionText),
		"options":        len(t.Options),
		"difficulty":     len(t.Difficulty),
		"correct_answer": len(t.CorrectAnswer),
		"explanation":    len(t.Explanation),
	}
	for col, l := range lengths {
		if l != n {
			return fmt.Errorf("column %s has %d values, want %d", col, l, n)
		}
	}
	return nil
}

// UnmarshalJSON decodes the column-map form and rejects ragged tables.
func (t *Table) UnmarshalJSON(data []byte) error {
	type plain Table
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	decoded := Table(p)
	if err := decoded.validate(); err != nil {
		return err
	}
	*t = decoded
	return nil
}
