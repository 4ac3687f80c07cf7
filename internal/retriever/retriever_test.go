package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/sujalgawas/JEE-question-generator/internal/ai"
	"github.com/sujalgawas/JEE-question-generator/internal/corpus"
	"github.com/sujalgawas/JEE-question-generator/internal/vectorindex"
)

func fixture(t *testing.T) (*corpus.Corpus, *vectorindex.Index) {
	t.Helper()
	c := corpus.New([]corpus.Row{
		{ID: 0, Question: "q0", Concept: "Kinematics"},
		{ID: 1, Question: "q1", Concept: "Thermo"},
		{ID: 2, Question: "q2", Concept: "Kinematics"},
		{ID: 3, Question: "q3", Concept: " Optics "},
	})
	// Row 1 is absent from the index, as if its embedding had failed.
	ix, err := vectorindex.New(
		[]int{0, 2, 3},
		[][]float32{{0, 0}, {0, 1}, {10, 10}},
		c.Fingerprint(),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c, ix
}

func TestRetrieve(t *testing.T) {
	c, ix := fixture(t)
	emb := &ai.MockEmbedder{Vectors: map[string][]float32{"Kinematics": {0, 0.1}}}
	r := New(emb, ix, c, nil)

	tests := []struct {
		name  string
		count int
		want  []int
	}{
		{"exact count", 2, []int{0, 2}},
		{"fewer than requested", 5, []int{0, 2, 3}},
		{"zero", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := r.Retrieve(context.Background(), "Kinematics", tt.count)
			if len(rows) != len(tt.want) {
				t.Fatalf("len(rows) = %d, want %d", len(rows), len(tt.want))
			}
			for i, row := range rows {
				if row.ID != tt.want[i] {
					t.Errorf("rows[%d].ID = %d, want %d", i, row.ID, tt.want[i])
				}
			}
		})
	}
}

func TestRetrieve_EmbeddingFailureDegradesToEmpty(t *testing.T) {
	c, ix := fixture(t)
	r := New(&ai.MockEmbedder{Err: errors.New("quota exceeded")}, ix, c, nil)

	if rows := r.Retrieve(context.Background(), "Kinematics", 3); len(rows) != 0 {
		t.Errorf("Retrieve() = %d rows, want 0", len(rows))
	}
}

func TestRetrieve_SearchFailureDegradesToEmpty(t *testing.T) {
	c, ix := fixture(t)
	// Wrong dimension makes the search fail.
	emb := &ai.MockEmbedder{Default: []float32{1, 2, 3}}
	r := New(emb, ix, c, nil)

	if rows := r.Retrieve(context.Background(), "Thermo", 2); len(rows) != 0 {
		t.Errorf("Retrieve() = %d rows, want 0", len(rows))
	}
}

func TestRetrieve_NoDedupeAcrossCalls(t *testing.T) {
	c, ix := fixture(t)
	emb := &ai.MockEmbedder{Default: []float32{0, 0}}
	r := New(emb, ix, c, nil)

	a := r.Retrieve(context.Background(), "Kinematics", 1)
	b := r.Retrieve(context.Background(), "Thermo", 1)
	if len(a) != 1 || len(b) != 1 || a[0].ID != b[0].ID {
		t.Errorf("expected the same row for both concepts, got %v and %v", a, b)
	}
}

func TestConcepts(t *testing.T) {
	c, _ := fixture(t)
	got := Concepts(c)
	want := []string{"Kinematics", "Thermo", "Optics"}
	if len(got) != len(want) {
		t.Fatalf("Concepts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Concepts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
