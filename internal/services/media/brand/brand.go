// Package brand owns the brand analysis contract: the JSON schema handed to
// providers, the prompt that embeds it, and the lenient parse of what comes back
package brand

import (
	"bytes"
	"encoding/json"
	stderrs "errors"
	"strings"
	"sync"

	"vidbrief/internal/services/media/domain"

	reflector "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaVersion tags analysis envelopes
const SchemaVersion = "brand_analysis.v1"

const schemaID = "brand_analysis.v1.json"

var (
	once     sync.Once
	raw      []byte
	compiled *jsonschema.Schema
	initErr  error
)

func load() {
	r := &reflector.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(&domain.BrandAnalysis{})
	if raw, initErr = json.Marshal(s); initErr != nil {
		return
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		initErr = err
		return
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaID, doc); err != nil {
		initErr = err
		return
	}
	compiled, initErr = c.Compile(schemaID)
}

// Schema returns the JSON schema for domain.BrandAnalysis
func Schema() ([]byte, error) {
	once.Do(load)
	return raw, initErr
}

// Parse turns provider text into an analysis. It never fails: problems are
// reported as issues and the payload falls back to empty
func Parse(text string) (domain.BrandAnalysis, []domain.AnalysisIssue) {
	issues := []domain.AnalysisIssue{}
	body := extractJSON(text)
	if body == "" {
		issues = append(issues, domain.AnalysisIssue{
			Code:    domain.IssueMissing,
			Message: "analyze response carried no data",
		})
		return domain.EmptyBrandAnalysis(), issues
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		issues = append(issues, domain.AnalysisIssue{
			Code:    domain.IssueParse,
			Message: "response data was not valid json",
			Details: map[string]any{"error": err.Error()},
		})
		return domain.EmptyBrandAnalysis(), issues
	}

	if _, err := Schema(); err != nil {
		issues = append(issues, domain.AnalysisIssue{
			Code:    domain.IssueValidation,
			Message: "schema unavailable",
			Details: map[string]any{"error": err.Error()},
		})
	} else if err := compiled.Validate(inst); err != nil {
		d := map[string]any{"error": err.Error()}
		var ve *jsonschema.ValidationError
		if stderrs.As(err, &ve) {
			d["location"] = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		issues = append(issues, domain.AnalysisIssue{
			Code:    domain.IssueValidation,
			Message: "response did not match the brand analysis schema",
			Details: d,
		})
	}

	out := domain.EmptyBrandAnalysis()
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		issues = append(issues, domain.AnalysisIssue{
			Code:    domain.IssueValidation,
			Message: "response could not be decoded",
			Details: map[string]any{"error": err.Error()},
		})
		return domain.EmptyBrandAnalysis(), issues
	}
	return fill(out), issues
}

// extractJSON strips markdown fences and surrounding prose from model output
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if json.Valid([]byte(s)) {
		return s
	}
	i, j := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if i >= 0 && j > i && json.Valid([]byte(s[i:j+1])) {
		return s[i : j+1]
	}
	return s
}

func fill(a domain.BrandAnalysis) domain.BrandAnalysis {
	if a.Hashtags == nil {
		a.Hashtags = []string{}
	}
	if a.Topics == nil {
		a.Topics = []string{}
	}
	if a.Chapters == nil {
		a.Chapters = []domain.Chapter{}
	}
	if a.BrandMentions == nil {
		a.BrandMentions = []domain.BrandMention{}
	}
	return a
}
