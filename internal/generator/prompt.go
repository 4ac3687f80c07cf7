package generator

import (
	"strings"
	"text/template"
)

var promptTmpl = template.Must(template.New("question").Parse(`Based on the following original JEE question, generate a *new*, *similar* JEE question.
Ensure the new question tests the same core concept and maintains a similar difficulty level.
Do not just rephrase the original question; create a genuinely new problem.

Original Question:
"{{.Original}}"

Concept: {{.Concept}}
Difficulty: {{.Difficulty}}

Your response MUST be a single, valid JSON object. Do not include any text or markdown formatting before or after the JSON.
The JSON object must have these exact keys:
- "question_text": The text of the new question.
- "options": A dictionary with four keys ("A", "B", "C", "D") and their string values.
- "correct_answer": A string of the correct option key (e.g., "C").
- "explanation": A brief explanation for the solution.

Example Response:
{
  "question_text": "A particle of mass 'm' is executing uniform circular motion on a path of radius 'r'. If its speed is 'v' and kinetic energy is 'E', what is its angular momentum?",
  "options": {
    "A": "E*r / (2*v)",
    "B": "2*E*r / v",
    "C": "2*E*v / r",
    "D": "E*v / (2*r)"
  },
  "correct_answer": "B",
  "explanation": "Kinetic energy E = (1/2)mv^2. Angular momentum L = mvr. From the energy equation, m = 2E/v^2. Substituting into L gives L = (2E/v^2) * v * r = 2Er/v."
}
`))

type promptData struct {
	Original   string
	Concept    string
	Difficulty string
}

func buildPrompt(original, difficulty, concept string) (string, error) {
	var b strings.Builder
	err := promptTmpl.Execute(&b, promptData{
		Original:   strings.TrimSpace(original),
		Concept:    strings.TrimSpace(concept),
		Difficulty: strings.TrimSpace(difficulty),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
