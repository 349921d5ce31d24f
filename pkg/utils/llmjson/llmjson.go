// Package llmjson extracts a JSON object from a raw model reply. Even with a
// JSON response MIME type, replies sometimes arrive wrapped in markdown fences
// or commentary, or carry literal control characters inside string values;
// this package recovers the object when possible and reports
// model.ErrMalformedModelOutput when it cannot.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/r-fujimoto/grind/pkg/model"
)

var (
	labeledFence = regexp.MustCompile("(?s)```(?:json|JSON)\\s*\\n(.*?)```")
	anyFence     = regexp.MustCompile("(?s)```\\s*\\n(.*?)```")
)

// controlScrub flattens literal control characters to spaces. Models
// occasionally emit real newlines inside string values, which is invalid JSON.
var controlScrub = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// Extract returns the JSON object embedded in raw. It tries, in order: a
// ```json fence, any fence, and trimming to the outermost braces. A candidate
// that fails to parse gets one retry with control characters scrubbed.
func Extract(raw string) (json.RawMessage, error) {
	candidate := raw
	if m := labeledFence.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	} else if m := anyFence.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	}
	candidate = strings.TrimSpace(candidate)

	if start, end := strings.Index(candidate, "{"), strings.LastIndex(candidate, "}"); start >= 0 && end > start {
		candidate = candidate[start : end+1]
	}

	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	scrubbed := controlScrub.Replace(candidate)
	if json.Valid([]byte(scrubbed)) {
		return json.RawMessage(scrubbed), nil
	}

	return nil, goerr.Wrap(model.ErrMalformedModelOutput, "no JSON object in model reply",
		goerr.V("raw", raw))
}

// Unmarshal extracts the JSON object in raw and decodes it into v.
func Unmarshal(raw string, v any) error {
	data, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return goerr.Wrap(model.ErrMalformedModelOutput, "model reply does not match expected shape",
			goerr.V("raw", raw), goerr.V("cause", err.Error()))
	}
	return nil
}
