// Package sanitize recovers usable output from raw LLM responses. Models
// and their client wrappers decorate responses with code fences, repr
// prefixes, escaped newlines, and trailing metadata; this package strips
// all of that and validates structured output against the analyst
// contract, degrading to partial results instead of failing outright.
package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Outcome classifies an extraction result.
type Outcome int

const (
	// Valid means the output parsed and every required field was
	// present with a string value.
	Valid Outcome = iota

	// Partial means the output parsed as JSON but one or more required
	// fields were missing or had the wrong type. Present fields are
	// kept, absent ones are zero, and Warning says what was wrong.
	Partial

	// Unparseable means no JSON object could be recovered at all. Raw
	// carries the text that was attempted, for operator diagnosis.
	Unparseable
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Partial:
		return "partial"
	case Unparseable:
		return "unparseable"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Extraction is the result of ExtractStructured. Raw always holds the
// text the parse was attempted on, so nothing is silently discarded.
type Extraction struct {
	Outcome  Outcome
	Analysis Analysis
	Warning  string
	Raw      string
}

var (
	fenceRe = regexp.MustCompile("(?im)^```(?:json)?|```$")

	// Wrapper metadata that some client libraries append after the
	// content when a response object is stringified.
	metadataMarkerRe = regexp.MustCompile(`additional_kwargs=|response_metadata=|id='`)

	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe   = regexp.MustCompile(`[ \t]{2,}`)
	emphasisRe     = regexp.MustCompile(`(\*+)[ \t]+`)
	headingRe      = regexp.MustCompile(`(?m)^(#+ .+)\n([^\n#])`)
)

// ExtractStructured pulls an Analysis out of raw model output.
//
// The cleaning pipeline: strip code fences, strip a leading "content="
// repr prefix and its quotes, slice from the first '{' to the last '}',
// unescape literal \n and \" sequences, drop one more layer of
// surrounding quotes, then parse. A failed parse gets one repair pass
// before giving up. Parsed objects are validated against the three
// required Analysis fields; misses degrade to Partial, never to a
// silent drop.
func ExtractStructured(raw string) Extraction {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))

	if rest, ok := strings.CutPrefix(s, "content="); ok {
		s = strings.TrimSpace(rest)
		if len(s) > 0 && (s[0] == '\'' || s[0] == '"') {
			s = s[1:]
		}
		s = strings.TrimSpace(s)
	}

	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first == -1 || last == -1 || last <= first {
		return Extraction{
			Outcome: Unparseable,
			Warning: "no JSON object found in output",
			Raw:     s,
		}
	}

	jsonStr := s[first : last+1]
	jsonStr = strings.ReplaceAll(jsonStr, `\n`, "\n")
	jsonStr = strings.ReplaceAll(jsonStr, `\"`, `"`)
	jsonStr = strings.TrimSpace(jsonStr)
	if len(jsonStr) >= 2 {
		if (jsonStr[0] == '\'' && jsonStr[len(jsonStr)-1] == '\'') ||
			(jsonStr[0] == '"' && jsonStr[len(jsonStr)-1] == '"') {
			jsonStr = jsonStr[1 : len(jsonStr)-1]
		}
	}

	fields, err := parseObject(jsonStr)
	if err != nil {
		return Extraction{
			Outcome: Unparseable,
			Warning: fmt.Sprintf("parse failed after cleaning: %v", err),
			Raw:     jsonStr,
		}
	}

	return validate(fields, s)
}

// parseObject unmarshals a JSON object, retrying through jsonrepair when
// the first attempt fails. Repair handles truncated output, single
// quotes, and trailing commas, all common in model-emitted JSON.
func parseObject(jsonStr string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &fields); err == nil {
		return fields, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
	if repairErr != nil {
		return nil, fmt.Errorf("repair: %w", repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// validate checks parsed fields against the Analysis contract.
func validate(fields map[string]any, raw string) Extraction {
	var a Analysis
	var problems []string

	set := func(dst *string, key string) {
		v, ok := fields[key]
		if !ok || v == nil {
			problems = append(problems, fmt.Sprintf("missing field %q", key))
			return
		}
		s, ok := v.(string)
		if !ok {
			problems = append(problems, fmt.Sprintf("field %q is not a string", key))
			return
		}
		*dst = s
	}
	set(&a.KeyInsights, "key_insights")
	set(&a.ComparativeAnalysis, "comparative_analysis")
	set(&a.Narrative, "narrative")

	if len(problems) > 0 {
		return Extraction{
			Outcome:  Partial,
			Analysis: a,
			Warning:  "validation: " + strings.Join(problems, "; "),
			Raw:      raw,
		}
	}
	return Extraction{Outcome: Valid, Analysis: a, Raw: raw}
}

// NormalizeProse cleans Markdown-ish prose output: truncates at the
// first wrapper-metadata marker, strips a "content=" repr prefix,
// collapses runs of blank lines and horizontal whitespace, tightens
// emphasis markers, and ensures a blank line after headings.
//
// The function is idempotent: applying it to its own output changes
// nothing.
func NormalizeProse(raw string) string {
	s := raw
	if rest, ok := strings.CutPrefix(s, `content="`); ok && strings.HasSuffix(rest, `"`) {
		s = rest[:len(rest)-1]
	} else if rest, ok := strings.CutPrefix(s, "content="); ok {
		s = strings.TrimSpace(rest)
	}

	if loc := metadataMarkerRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	s = strings.TrimSpace(s)
	s = multiNewlineRe.ReplaceAllString(s, "\n\n")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = emphasisRe.ReplaceAllString(s, "$1 ")
	s = headingRe.ReplaceAllString(s, "$1\n\n$2")
	return strings.TrimSpace(s)
}
