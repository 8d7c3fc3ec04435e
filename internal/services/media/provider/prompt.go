package provider

import (
	"encoding/json"
	"strings"
)

// DefaultLanguage is used when a request names none
const DefaultLanguage = "English"

// SummaryPrompt maps a style keyword to an instruction. Unknown styles are
// taken as the instruction itself
func SummaryPrompt(style, language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = DefaultLanguage
	}
	switch s := strings.ToLower(strings.TrimSpace(style)); s {
	case "", "concise", "brief", "short":
		return "Write a concise summary in " + lang + " with 3-5 bullet points."
	case "detailed", "long", "thorough":
		return "Write a detailed summary in " + lang + " focusing on key points and takeaways."
	default:
		return strings.TrimSpace(style)
	}
}

var summaryPaths = [][]string{
	{"summary"},
	{"data", "summary"},
	{"result", "summary"},
	{"output"},
	{"description"},
	{"text"},
}

// ExtractSummary finds the summary text across the payload shapes providers use
func ExtractSummary(raw json.RawMessage) string {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	for _, path := range summaryPaths {
		if s, ok := lookup(doc, path).(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// ExtractData returns the "data" member as text: a string is returned as is,
// an object or array is returned as its json
func ExtractData(raw json.RawMessage) string {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || len(doc.Data) == 0 || string(doc.Data) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(doc.Data, &s) == nil {
		return s
	}
	return string(doc.Data)
}

// traceID reads a top level "id"
func traceID(raw json.RawMessage) string {
	var doc struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &doc)
	return doc.ID
}

func lookup(node any, path []string) any {
	for _, k := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		if node, ok = m[k]; !ok {
			return nil
		}
	}
	return node
}
