package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Result is the outcome of analyzing one unit of code. It is either a
// Success or a Failure.
type Result interface {
	isResult()
}

// Success carries normalized findings. The lists are never nil.
type Success struct {
	Summary         string
	Vulnerabilities []string
	Recommendations []string
	Dependencies    []string
}

// Failure records an analyzer call that failed or produced content that
// could not be decoded.
type Failure struct {
	Err       error
	RawOutput string
}

func (Success) isResult() {}
func (Failure) isResult() {}

// DefaultSummary is used when a successful response omits the summary.
const DefaultSummary = "No summary provided."

// StringList decodes a JSON string, array or null into a list of strings.
// Array elements that are not strings are kept as compact JSON.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = StringList{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*l = StringList{}
			return nil
		}
		*l = StringList{s}
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make(StringList, 0, len(items))
		for _, item := range items {
			out = append(out, itemText(item))
		}
		*l = out
		return nil
	default:
		*l = StringList{itemText(data)}
		return nil
	}
}

func itemText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// response is the JSON shape models are asked to produce. Error and
// RawOutput carry a provider-reported failure.
type response struct {
	Summary         *string    `json:"summary"`
	Vulnerabilities StringList `json:"vulnerabilities"`
	Recommendations StringList `json:"recommendations"`
	Dependencies    StringList `json:"dependencies"`
	Error           string     `json:"error"`
	RawOutput       string     `json:"raw_output"`
}

// Decode turns raw model output into a Result. Markdown code fences are
// stripped first; anything that does not decode as a JSON object becomes a
// Failure carrying the raw text.
func Decode(raw string) Result {
	text := StripFences(raw)
	if !strings.HasPrefix(text, "{") {
		return Failure{
			Err:       errors.New("LLM response is not a JSON object"),
			RawOutput: text,
		}
	}

	var resp response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return Failure{
			Err:       fmt.Errorf("LLM response could not be parsed as JSON: %w", err),
			RawOutput: text,
		}
	}
	if resp.Error != "" {
		return Failure{Err: errors.New(resp.Error), RawOutput: resp.RawOutput}
	}

	s := Success{
		Summary:         DefaultSummary,
		Vulnerabilities: nonNil(resp.Vulnerabilities),
		Recommendations: nonNil(resp.Recommendations),
		Dependencies:    nonNil(resp.Dependencies),
	}
	if resp.Summary != nil {
		s.Summary = *resp.Summary
	}
	return s
}

func nonNil(l StringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

// StripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := text[3 : len(text)-3]
	// Drop an info string such as "json" on the opening fence line.
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		first := strings.TrimSpace(inner[:nl])
		if first == "" || !strings.ContainsAny(first, "{[\"") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
