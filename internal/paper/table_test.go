package paper

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleTable() *Table {
	t := NewTable()
	t.Append(Entry{
		Subject: "Physics", Concept: "Kinematics", Weightage: 3,
		QuestionText: "A car accelerates from rest...", Options: map[string]string{"B": "20 m", "A": "10 m", "C": "30 m", "D": "40 m"},
		Difficulty: "Medium", CorrectAnswer: "B", Explanation: "s = ut + at^2/2",
	})
	t.Append(Entry{
		Subject: "Chemistry", Concept: "Mole concept", Weightage: 1.5,
		QuestionText: "How many moles...", Options: map[string]string{},
		Difficulty: "Easy", CorrectAnswer: "N/A", Explanation: "N/A",
	})
	return t
}

func TestTable_AppendNumbersSequentially(t *testing.T) {
	tbl := NewTable()
	for i := 1; i <= 3; i++ {
		if n := tbl.Append(Entry{QuestionNumber: 99}); n != i {
			t.Errorf("Append() = %d, want %d", n, i)
		}
	}
	if tbl.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tbl.Len())
	}
}

func TestTable_AppendCopiesOptions(t *testing.T) {
	tbl := NewTable()
	opts := map[string]string{"A": "x"}
	tbl.Append(Entry{Options: opts})
	opts["A"] = "mutated"
	if tbl.Options[0]["A"] != "x" {
		t.Error("Append() should copy the options map")
	}
}

func TestTable_CloneIsIndependent(t *testing.T) {
	orig := NewTable()
	orig.Append(Entry{Concept: "Optics", Options: map[string]string{"A": "1"}})
	c := orig.Clone()
	c.Append(Entry{Concept: "Kinematics"})
	c.Options[0]["A"] = "2"
	c.Concept[0] = "Thermodynamics"

	if orig.Len() != 1 || orig.Options[0]["A"] != "1" || orig.Concept[0] != "Optics" {
		t.Errorf("original changed through clone: %+v", orig)
	}
}

func TestTable_JSONColumnShape(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, sampleTable()); err != nil {
		t.Fatal(err)
	}

	var cols map[string][]any
	if err := json.Unmarshal(buf.Bytes(), &cols); err != nil {
		t.Fatalf("output is not a column map: %v", err)
	}
	for _, c := range Columns {
		if len(cols[c]) != 2 {
			t.Errorf("column %s has %d values, want 2", c, len(cols[c]))
		}
	}

	var back Table
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Entry(1).Concept != "Mole concept" || back.Entry(0).Options["B"] != "20 m" {
		t.Errorf("decoded table = %+v", back.Entries())
	}
}

func TestTable_EmptyEncodesAsLists(t *testing.T) {
	b, err := json.Marshal(NewTable())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "null") {
		t.Errorf("empty table JSON = %s, want [] columns", b)
	}
}

func TestTable_RejectsRaggedJSON(t *testing.T) {
	var tbl Table
	err := json.Unmarshal([]byte(`{"question_number": [1, 2], "subject": ["Physics"]}`), &tbl)
	if err == nil {
		t.Error("Unmarshal() should reject columns of different lengths")
	}
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, sampleTable()); err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "question_number" || rows[0][8] != "explanation" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "Physics" || rows[1][5] != "A) 10 m\nB) 20 m\nC) 30 m\nD) 40 m" {
		t.Errorf("first question row = %q", rows[1])
	}
	if rows[2][0] != "2" {
		t.Errorf("second question number = %q, want 2", rows[2][0])
	}
}

func TestFormatOptions(t *testing.T) {
	if got := FormatOptions(nil); got != "" {
		t.Errorf("FormatOptions(nil) = %q, want empty", got)
	}
	if got := FormatOptions(map[string]string{"D": "d", "A": "a"}); got != "A) a\nD) d" {
		t.Errorf("FormatOptions() = %q", got)
	}
}
