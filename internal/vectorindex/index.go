// Package vectorindex is an exact nearest-neighbour index over corpus row
// embeddings using squared Euclidean distance.
package vectorindex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyIndex is returned by Build when no row could be embedded.
	ErrEmptyIndex = errors.New("no rows could be embedded")
	// ErrDimension is returned when a vector's length differs from the index.
	ErrDimension = errors.New("vector dimension mismatch")
)

// Hit is one search result: the corpus row ID and its distance to the query.
type Hit struct {
	RowID    int
	Distance float32
}

// Index stores one vector per embedded row. Position i in the index holds
// the vector of corpus row rowIDs[i]; rows that failed to embed are absent,
// so positions and row IDs differ in general. An Index is read-only after
// construction and safe for concurrent searches.
type Index struct {
	dim         int
	vectors     []float32 // len(rowIDs) * dim, row-major
	rowIDs      []int
	fingerprint string
}

// New builds an index from parallel slices of row IDs and vectors.
func New(rowIDs []int, vectors [][]float32, fingerprint string) (*Index, error) {
	if len(rowIDs) != len(vectors) {
		return nil, fmt.Errorf("%d row ids for %d vectors", len(rowIDs), len(vectors))
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector", ErrDimension)
	}
	flat := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrDimension, rowIDs[i], len(v), dim)
		}
		flat = append(flat, v...)
	}
	return &Index{
		dim:         dim,
		vectors:     flat,
		rowIDs:      append([]int(nil), rowIDs...),
		fingerprint: fingerprint,
	}, nil
}

// Len returns the number of vectors in the index.
func (ix *Index) Len() int { return len(ix.rowIDs) }

// Dim returns the vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Fingerprint identifies the corpus and embedding model the index was built
// from. See Key.
func (ix *Index) Fingerprint() string { return ix.fingerprint }

// CorpusFingerprint returns the corpus part of the fingerprint.
func (ix *Index) CorpusFingerprint() string {
	fp, _, _ := strings.Cut(ix.fingerprint, keySep)
	return fp
}

// Model returns the embedding model recorded in the fingerprint, or "" if
// none was recorded.
func (ix *Index) Model() string {
	_, model, _ := strings.Cut(ix.fingerprint, keySep)
	return model
}

const keySep = "|"

// Key joins a corpus fingerprint and the embedding model name into an index
// fingerprint. An empty model leaves the corpus fingerprint unchanged.
func Key(corpusFingerprint, model string) string {
	if model == "" {
		return corpusFingerprint
	}
	return corpusFingerprint + keySep + model
}

// RowIDs returns the position to row ID mapping. Callers must not modify it.
func (ix *Index) RowIDs() []int { return ix.rowIDs }

// Search returns the min(k, Len()) nearest rows to query by ascending
// squared L2 distance. Equal distances keep index order.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimension, len(query), ix.dim)
	}
	if k > ix.Len() {
		k = ix.Len()
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, ix.Len())
	for pos := range ix.rowIDs {
		hits[pos] = Hit{RowID: ix.rowIDs[pos], Distance: squaredL2(query, ix.vectors[pos*ix.dim:(pos+1)*ix.dim])}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
