// Package normalize turns the raw body of a tool call into canonical values
// and surfaces tool-level failures as errors.
//
// A body arrives in one of three shapes, tried in this order:
//
//  1. ContentResult: an object with a non-empty "content" array.
//  2. IterableResult: a bare array of chunks.
//  3. OpaqueResult: anything else; payloads are recovered from embedded
//     text='...' segments of its textual form.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Marker starts the text of every failed tool result.
const Marker = "Error executing tool"

var opaqueTextPattern = regexp.MustCompile(`(?s)text='(.*?)'`)

// ToolExecutionError is a failure reported by the tool itself or by the
// transport that carried the call. Err is set only for transport failures.
type ToolExecutionError struct {
	Message string
	Err     error
}

func (e *ToolExecutionError) Error() string {
	return e.Message
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// Result is one of ContentResult, IterableResult or OpaqueResult.
type Result interface {
	// Fragments returns the trimmed textual payload of each chunk.
	Fragments() []string
	isResult()
}

type ContentResult struct {
	Chunks []any
}

type IterableResult struct {
	Items []any
}

type OpaqueResult struct {
	Text string
}

func (ContentResult) isResult() {}
func (IterableResult) isResult() {}
func (OpaqueResult) isResult() {}

func (r ContentResult) Fragments() []string { return chunkFragments(r.Chunks) }
func (r IterableResult) Fragments() []string { return chunkFragments(r.Items) }

func (r OpaqueResult) Fragments() []string {
	matches := opaqueTextPattern.FindAllStringSubmatch(r.Text, -1)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = strings.TrimSpace(m[1])
	}
	return out
}

// Classify picks the shape of a raw tool-call body.
func Classify(raw json.RawMessage) Result {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return OpaqueResult{Text: string(raw)}
	}

	switch body := v.(type) {
	case map[string]any:
		if chunks, ok := body["content"].([]any); ok && len(chunks) > 0 {
			return ContentResult{Chunks: chunks}
		}
	case []any:
		return IterableResult{Items: body}
	case string:
		return OpaqueResult{Text: body}
	}
	return OpaqueResult{Text: string(raw)}
}

// Extract returns the payload of each fragment, interpreting fragments that
// look like JSON objects when parseJSON is set. A fragment that fails to
// parse is kept as text.
func Extract(r Result, parseJSON bool) []any {
	frags := r.Fragments()
	out := make([]any, len(frags))
	for i, frag := range frags {
		out[i] = frag
		if !parseJSON || !looksLikeObject(frag) {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(frag), &obj); err == nil {
			out[i] = obj
		}
	}
	return out
}

// Normalize classifies raw, extracts its payloads and collapses a single
// payload to a scalar. The value is a string, a map[string]any, or a
// []any of those. A payload starting with Marker is returned as a
// *ToolExecutionError.
func Normalize(raw json.RawMessage, parseJSON bool) (any, error) {
	items := Extract(Classify(raw), parseJSON)

	var data any = items
	if len(items) == 1 {
		data = items[0]
	}

	if msg, ok := failure(data); ok {
		return nil, &ToolExecutionError{Message: msg}
	}
	return data, nil
}

// AsList widens a collapsed value back to a sequence.
func AsList(v any) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		return t
	default:
		return []any{t}
	}
}

func failure(data any) (string, bool) {
	if list, ok := data.([]any); ok {
		if len(list) == 0 {
			return "", false
		}
		data = list[0]
	}
	s, ok := data.(string)
	if ok && strings.HasPrefix(s, Marker) {
		return s, true
	}
	return "", false
}

func chunkFragments(chunks []any) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = strings.TrimSpace(chunkText(c))
	}
	return out
}

// chunkText prefers the chunk's text field and falls back to its string form.
func chunkText(c any) string {
	switch t := c.(type) {
	case map[string]any:
		if text, ok := t["text"].(string); ok {
			return text
		}
	case string:
		return t
	}
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

func looksLikeObject(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
}
