// Package syllabus holds the exam syllabus model: subjects in definition
// order, each with a question total and weighted concepts.
package syllabus

import (
	"sort"
	"strings"
)

// ConceptWeight is one concept and its relative weightage within a subject.
type ConceptWeight struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Subject is one section of the paper (e.g., Physics).
type Subject struct {
	Name           string
	TotalQuestions int
	// Concepts keep the order they were defined in; allocation tie-breaks
	// depend on it.
	Concepts []ConceptWeight
}

// Spec is the immutable syllabus input to paper assembly.
type Spec struct {
	Subjects []Subject
}

// TotalQuestions returns the sum of all subject totals.
func (s Spec) TotalQuestions() int {
	n := 0
	for _, sub := range s.Subjects {
		n += sub.TotalQuestions
	}
	return n
}

// Subject returns the subject with the given name.
func (s Spec) Subject(name string) (Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.Name == name {
			return sub, true
		}
	}
	return Subject{}, false
}

// Weight returns the raw weight of a concept in the subject.
func (s Subject) Weight(concept string) (float64, bool) {
	for _, c := range s.Concepts {
		if c.Name == concept {
			return c.Weight, true
		}
	}
	return 0, false
}

// WeakSet is the set of concepts flagged for boosted allocation.
type WeakSet map[string]struct{}

// NewWeakSet builds a WeakSet from names, ignoring blanks.
func NewWeakSet(names ...string) WeakSet {
	w := make(WeakSet, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			w[n] = struct{}{}
		}
	}
	return w
}

// ParseWeakList parses a comma-separated list of concept names.
func ParseWeakList(s string) WeakSet {
	return NewWeakSet(strings.Split(s, ",")...)
}

// Contains reports whether concept is flagged weak. A nil set contains nothing.
func (w WeakSet) Contains(concept string) bool {
	_, ok := w[concept]
	return ok
}

// Names returns the weak concepts sorted.
func (w WeakSet) Names() []string {
	out := make([]string, 0, len(w))
	for n := range w {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
