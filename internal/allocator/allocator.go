// Package allocator turns a subject's concept weights into integer question
// counts using the largest-remainder method.
package allocator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sujalgawas/JEE-question-generator/internal/syllabus"
)

// DefaultBoost multiplies the weight of weak concepts.
const DefaultBoost = 2.0

var (
	// ErrNegativeWeight is returned when a concept weight is below zero.
	ErrNegativeWeight = errors.New("negative concept weight")
	// ErrNegativeTotal is returned when the requested total is below zero.
	ErrNegativeTotal = errors.New("negative question total")
	// ErrNonFinite is returned for an infinite weight or boost.
	ErrNonFinite = errors.New("non-finite weight")
)

// Count is the number of questions allotted to one concept.
type Count struct {
	Concept string
	// Weight is the raw syllabus weight, before any boost.
	Weight float64
	N      int
}

// Result holds one Count per input concept, in input order.
type Result []Count

// Get returns the count for concept, or 0 if absent.
func (r Result) Get(concept string) int {
	for _, c := range r {
		if c.Concept == concept {
			return c.N
		}
	}
	return 0
}

// Total returns the sum of all counts.
func (r Result) Total() int {
	n := 0
	for _, c := range r {
		n += c.N
	}
	return n
}

// Map returns the counts keyed by concept.
func (r Result) Map() map[string]int {
	m := make(map[string]int, len(r))
	for _, c := range r {
		m[c.Concept] = c.N
	}
	return m
}

// Allocate splits total across concepts in proportion to their weights,
// multiplying the weight of every concept in weak by boost. Each concept gets
// the floor of its ideal share; the leftover units go one each to the concepts
// with the largest fractional parts. Equal fractional parts are resolved in
// input order.
//
// When every adjusted weight is zero each concept gets 0 and the error is nil.
func Allocate(concepts []syllabus.ConceptWeight, total int, weak syllabus.WeakSet, boost float64) (Result, error) {
	if total < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeTotal, total)
	}
	if math.IsNaN(boost) || math.IsInf(boost, 0) {
		return nil, fmt.Errorf("%w: boost %v", ErrNonFinite, boost)
	}
	var maxWeight float64
	for _, c := range concepts {
		if c.Weight < 0 || math.IsNaN(c.Weight) {
			return nil, fmt.Errorf("%w: %q has weight %v", ErrNegativeWeight, c.Name, c.Weight)
		}
		if math.IsInf(c.Weight, 0) {
			return nil, fmt.Errorf("%w: %q has weight %v", ErrNonFinite, c.Name, c.Weight)
		}
		maxWeight = math.Max(maxWeight, c.Weight)
	}

	adjusted, sum := adjust(concepts, weak, boost, 1)
	if math.IsInf(sum, 0) {
		// Only the ratios matter, so scale huge weights down before summing.
		adjusted, sum = adjust(concepts, weak, boost, 1/maxWeight)
	}

	result := make(Result, len(concepts))
	for i, c := range concepts {
		result[i] = Count{Concept: c.Name, Weight: c.Weight}
	}
	if sum == 0 || total == 0 {
		return result, nil
	}

	type share struct {
		idx  int
		frac float64
	}
	shares := make([]share, len(concepts))
	assigned := 0
	for i, w := range adjusted {
		ideal := w / sum * float64(total)
		base := math.Floor(ideal)
		result[i].N = int(base)
		assigned += int(base)
		shares[i] = share{idx: i, frac: ideal - base}
	}

	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].frac > shares[b].frac
	})
	for remainder, k := total-assigned, 0; remainder > 0 && k < len(shares); remainder, k = remainder-1, k+1 {
		result[shares[k].idx].N++
	}

	return result, nil
}

func adjust(concepts []syllabus.ConceptWeight, weak syllabus.WeakSet, boost, scale float64) ([]float64, float64) {
	adjusted := make([]float64, len(concepts))
	var sum float64
	for i, c := range concepts {
		w := c.Weight * scale
		if weak.Contains(c.Name) {
			w *= boost
		}
		adjusted[i] = w
		sum += w
	}
	return adjusted, sum
}
