package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "\ufeffquestion,option1,option2,option3,option4,solution,explanation,difficulty,difficulty_prob,concept,extra\n" +
	"\"A ball is thrown up at 20 m/s, find max height\",10 m,20 m,30 m,40 m,B,v^2/2g,Medium,0.5,Kinematics,x\n" +
	"Define entropy,,,,,,,Easy,,Thermo\n" +
	"short row only\n"

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	r0, _ := c.Row(0)
	if r0.Question != "A ball is thrown up at 20 m/s, find max height" {
		t.Errorf("Question = %q", r0.Question)
	}
	if r0.Options != [4]string{"10 m", "20 m", "30 m", "40 m"} {
		t.Errorf("Options = %v", r0.Options)
	}
	if r0.Solution != "B" || r0.Concept != "Kinematics" || r0.Difficulty != "Medium" {
		t.Errorf("row 0 = %+v", r0)
	}

	r2, ok := c.Row(2)
	if !ok {
		t.Fatal("Row(2) missing")
	}
	if r2.ID != 2 || r2.Concept != "" || r2.Options[3] != "" {
		t.Errorf("short row should default missing cells to empty: %+v", r2)
	}

	if _, ok := c.Row(3); ok {
		t.Error("Row(3) should be out of range")
	}
	if _, ok := c.Row(-1); ok {
		t.Error("Row(-1) should be out of range")
	}
}

func TestRead_HeaderErrors(t *testing.T) {
	if _, err := Read(strings.NewReader("")); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := Read(strings.NewReader("concept,difficulty\nA,Easy\n")); err == nil {
		t.Error("header without question column should fail")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Newton's\tlaws \n of motion ", "Newton's laws of motion"},
		{"ｆｕｌｌ width", "full width"},
		{"x²", "x2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRow_EmbeddingText(t *testing.T) {
	r := Row{Question: "Find  g", Concept: "Gravitation", Difficulty: "Hard"}
	if got := r.EmbeddingText(); got != "Find g Gravitation Hard" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestFingerprint(t *testing.T) {
	rows := []Row{
		{ID: 0, Question: "q0", Concept: "A"},
		{ID: 1, Question: "q1", Concept: "B"},
	}
	a := Fingerprint(rows)
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", len(a))
	}
	if Fingerprint(rows) != a {
		t.Error("fingerprint is not deterministic")
	}

	changed := []Row{rows[0], {ID: 1, Question: "q1 edited", Concept: "B"}}
	if Fingerprint(changed) == a {
		t.Error("editing a question should change the fingerprint")
	}

	// Explanation is not embedded, so it does not affect the fingerprint.
	same := []Row{rows[0], {ID: 1, Question: "q1", Concept: "B", Explanation: "new"}}
	if Fingerprint(same) != a {
		t.Error("non-embedded fields should not change the fingerprint")
	}

	if New(rows).Fingerprint() != a {
		t.Error("Corpus.Fingerprint() disagrees with Fingerprint()")
	}
}
