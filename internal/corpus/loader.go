package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Columns recognised in the corpus file. Missing columns and cells are "".
var Columns = []string{
	"question", "option1", "option2", "option3", "option4",
	"solution", "explanation", "difficulty", "difficulty_prob", "concept",
}

// LoadFile reads a CSV corpus from path.
func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	slog.Info("corpus loaded", "path", path, "rows", c.Len())
	return c, nil
}

// Read parses a CSV corpus with a header row. Column order is taken from the
// header; unknown columns are ignored.
func Read(r io.Reader) (*Corpus, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("corpus has no header row")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	if _, ok := pos["question"]; !ok {
		return nil, fmt.Errorf("corpus header has no %q column", "question")
	}

	cell := func(rec []string, col string) string {
		i, ok := pos[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, Row{
			ID:       len(rows),
			Question: cell(rec, "question"),
			Options: [4]string{
				cell(rec, "option1"), cell(rec, "option2"),
				cell(rec, "option3"), cell(rec, "option4"),
			},
			Solution:       cell(rec, "solution"),
			Explanation:    cell(rec, "explanation"),
			Difficulty:     cell(rec, "difficulty"),
			DifficultyProb: cell(rec, "difficulty_prob"),
			Concept:        cell(rec, "concept"),
		})
	}

	return New(rows), nil
}
