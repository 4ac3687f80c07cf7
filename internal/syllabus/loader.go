package syllabus

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a syllabus that decoded but breaks a structural rule.
var ErrInvalid = errors.New("invalid syllabus")

// LoadFile reads a syllabus from a YAML or JSON file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("reading %s: %w", path, err)
	}
	spec, err := Parse(data)
	if err != nil {
		return Spec{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	slog.Info("syllabus loaded", "path", path, "subjects", len(spec.Subjects), "questions", spec.TotalQuestions())
	return spec, nil
}

// Parse decodes a syllabus document. JSON is accepted since it is valid YAML.
// The document is a mapping of subject name to
// {total_questions, concepts: {name: weight}}; subject and concept order
// follow the document.
func Parse(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, err
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks totals are non-negative, weights are finite and non-negative,
// and names are unique.
func (s Spec) Validate() error {
	seen := make(map[string]bool, len(s.Subjects))
	for _, sub := range s.Subjects {
		if sub.Name == "" {
			return fmt.Errorf("%w: subject with empty name", ErrInvalid)
		}
		if seen[sub.Name] {
			return fmt.Errorf("%w: duplicate subject %q", ErrInvalid, sub.Name)
		}
		seen[sub.Name] = true
		if sub.TotalQuestions < 0 {
			return fmt.Errorf("%w: subject %q has negative total_questions %d", ErrInvalid, sub.Name, sub.TotalQuestions)
		}
		concepts := make(map[string]bool, len(sub.Concepts))
		for _, c := range sub.Concepts {
			if c.Name == "" {
				return fmt.Errorf("%w: subject %q has a concept with empty name", ErrInvalid, sub.Name)
			}
			if concepts[c.Name] {
				return fmt.Errorf("%w: subject %q repeats concept %q", ErrInvalid, sub.Name, c.Name)
			}
			concepts[c.Name] = true
			if c.Weight < 0 {
				return fmt.Errorf("%w: concept %q in %q has negative weight %v", ErrInvalid, c.Name, sub.Name, c.Weight)
			}
			if math.IsInf(c.Weight, 0) || math.IsNaN(c.Weight) {
				return fmt.Errorf("%w: concept %q in %q has non-finite weight %v", ErrInvalid, c.Name, sub.Name, c.Weight)
			}
		}
	}
	return nil
}

type subjectDoc struct {
	TotalQuestions int       `yaml:"total_questions"`
	Concepts       yaml.Node `yaml:"concepts"`
}

// UnmarshalYAML walks the mapping node directly so definition order is kept.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: top level must be a mapping of subjects", ErrInvalid, node.Line)
	}
	subjects := make([]Subject, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		var doc subjectDoc
		if err := val.Decode(&doc); err != nil {
			return fmt.Errorf("subject %q: %w", key.Value, err)
		}
		concepts, err := decodeConcepts(&doc.Concepts)
		if err != nil {
			return fmt.Errorf("subject %q: %w", key.Value, err)
		}
		subjects = append(subjects, Subject{
			Name:           key.Value,
			TotalQuestions: doc.TotalQuestions,
			Concepts:       concepts,
		})
	}
	s.Subjects = subjects
	return nil
}

func decodeConcepts(node *yaml.Node) ([]ConceptWeight, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("%w: line %d: concepts must be a mapping of name to weight", ErrInvalid, node.Line)
	}
	out := make([]ConceptWeight, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var w float64
		if err := val.Decode(&w); err != nil {
			return nil, fmt.Errorf("concept %q: weight: %w", key.Value, err)
		}
		out = append(out, ConceptWeight{Name: key.Value, Weight: w})
	}
	return out, nil
}

// UnmarshalJSON accepts the same document shape as Parse, preserving order.
func (s *Spec) UnmarshalJSON(data []byte) error {
	return yaml.Unmarshal(data, s)
}
