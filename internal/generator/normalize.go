package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Defaults for fields the model left out.
const (
	DefaultQuestionText = "Error: Not generated"
	DefaultAnswer       = "N/A"
	DefaultExplanation  = "N/A"
)

var optionKeys = [...]string{"A", "B", "C", "D"}

// Question is one generated multiple-choice question.
type Question struct {
	Text          string            `json:"question_text"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	Explanation   string            `json:"explanation"`
}

// Shape is the kind of payload a model response decoded to.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeObject
	ShapeList
	ShapeRawText
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeList:
		return "list"
	case ShapeRawText:
		return "raw_text"
	default:
		return "unknown"
	}
}

// ShapeOf classifies a decoded payload.
func ShapeOf(v any) Shape {
	switch v.(type) {
	case map[string]any:
		return ShapeObject
	case []any:
		return ShapeList
	case string:
		return ShapeRawText
	default:
		return ShapeUnknown
	}
}

// ParseResponse decodes model output and normalises it. See Normalize.
func ParseResponse(content string) (Question, bool) {
	v, err := decode([]byte(content))
	if err != nil {
		return Normalize(content)
	}
	return Normalize(v)
}

// Normalize maps any payload shape onto a Question. The boolean is false
// when no JSON object could be recovered and the raw-text fallback was used:
// the whole text becomes the question and the other fields stay empty.
//
//   - Object: canonical keys, or the aliases text, answer and rationale.
//   - List: the first element if it is an object or a string; otherwise
//     positional question, options, answer, explanation.
//   - RawText: code fences stripped, then the first balanced {...} parsed.
//   - Unknown: raw-text fallback over its printed value.
func Normalize(v any) (Question, bool) {
	switch ShapeOf(v) {
	case ShapeObject:
		return fromObject(v.(map[string]any)), true
	case ShapeList:
		return fromList(v.([]any))
	case ShapeRawText:
		return fromText(v.(string))
	default:
		if v == nil {
			return fallback(""), false
		}
		return fallback(fmt.Sprint(v)), false
	}
}

func fromObject(m map[string]any) Question {
	q := Question{
		Text:          DefaultQuestionText,
		Options:       map[string]string{},
		CorrectAnswer: DefaultAnswer,
		Explanation:   DefaultExplanation,
	}
	if s, ok := lookup(m, "question_text", "text", "question"); ok {
		q.Text = s
	}
	if opts, ok := toOptions(m["options"]); ok {
		q.Options = opts
	}
	if s, ok := lookup(m, "correct_answer", "answer"); ok {
		q.CorrectAnswer = canonicalAnswer(s)
	}
	if s, ok := lookup(m, "explanation", "rationale"); ok {
		q.Explanation = s
	}
	return q
}

func fromList(items []any) (Question, bool) {
	if len(items) == 0 {
		return fallback(""), false
	}
	switch first := items[0].(type) {
	case map[string]any:
		return fromObject(first), true
	case string:
		if len(items) == 1 {
			return fromText(first)
		}
	}

	// Positional: question, options, answer, explanation.
	m := make(map[string]any, 4)
	keys := [...]string{"question_text", "options", "correct_answer", "explanation"}
	for i, key := range keys {
		if i < len(items) {
			m[key] = items[i]
		}
	}
	return fromObject(m), true
}

func fromText(s string) (Question, bool) {
	if inner, ok := stripFences(s); ok {
		if obj, ok := firstObject(inner); ok {
			return fromObject(obj), true
		}
	}
	if obj, ok := firstObject(s); ok {
		return fromObject(obj), true
	}
	return fallback(s), false
}

func fallback(raw string) Question {
	text := strings.TrimSpace(raw)
	if text == "" {
		text = DefaultQuestionText
	}
	return Question{Text: text, Options: map[string]string{}}
}

// lookup returns the first key present with a non-null value.
func lookup(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		return stringify(v), true
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func toOptions(v any) (map[string]string, bool) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[strings.ToUpper(strings.TrimSpace(k))] = stringify(val)
		}
		return out, true
	case []any:
		out := make(map[string]string, len(optionKeys))
		for i, val := range t {
			if i >= len(optionKeys) {
				break
			}
			if val == nil {
				continue
			}
			out[optionKeys[i]] = stringify(val)
		}
		return out, true
	case string:
		if obj, ok := firstObject(t); ok {
			return toOptions(obj)
		}
	}
	return nil, false
}

// canonicalAnswer turns "b", "(B)" or "B." into "B". Anything else is kept.
func canonicalAnswer(s string) string {
	trimmed := strings.Trim(strings.TrimSpace(s), "().:")
	if len(trimmed) == 1 {
		upper := strings.ToUpper(trimmed)
		for _, k := range optionKeys {
			if upper == k {
				return k
			}
		}
	}
	return s
}

// stripFences returns the body of the first ``` fenced block, minus any
// language tag.
func stripFences(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// firstObject scans for the first balanced top-level {...} that parses as a
// JSON object. Braces inside string literals are ignored.
func firstObject(s string) (map[string]any, bool) {
	for from := 0; from < len(s); {
		rel := strings.IndexByte(s[from:], '{')
		if rel < 0 {
			return nil, false
		}
		start := from + rel
		if end, ok := matchBrace(s, start); ok {
			if v, err := decode([]byte(s[start : end+1])); err == nil {
				if obj, ok := v.(map[string]any); ok {
					return obj, true
				}
			}
		}
		from = start + 1
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}
