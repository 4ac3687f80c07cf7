package generator

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const questionSchemaJSON = `{
  "type": "object",
  "required": ["question_text", "options", "correct_answer", "explanation"],
  "properties": {
    "question_text": {"type": "string", "minLength": 1},
    "options": {
      "type": "object",
      "required": ["A", "B", "C", "D"],
      "properties": {
        "A": {"type": "string"},
        "B": {"type": "string"},
        "C": {"type": "string"},
        "D": {"type": "string"}
      },
      "additionalProperties": false
    },
    "correct_answer": {"type": "string", "enum": ["A", "B", "C", "D"]},
    "explanation": {"type": "string"}
  }
}`

var questionSchema = mustSchema(questionSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling question schema: %v", err))
	}
	return s
}

// Check reports how q deviates from a well-formed four-option question.
// An empty result means q conforms.
func Check(q Question) ([]string, error) {
	res, err := questionSchema.Validate(gojsonschema.NewGoLoader(q))
	if err != nil {
		return nil, fmt.Errorf("validating question: %w", err)
	}
	if res.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}

func joinProblems(p []string) string {
	return strings.Join(p, "; ")
}
