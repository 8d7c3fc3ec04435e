package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Operation is what the caller asked the provider to produce
type Operation string

// Operations
const (
	OpSummarize Operation = "summarize"
	OpAnalyze   Operation = "analyze"
)

// Fingerprint is the cache key of a logical request
type Fingerprint string

const fpPrefix = "fp:v1:"

// FingerprintInput holds only stable request fields
type FingerprintInput struct {
	Target    string
	Provider  ProviderName
	Operation Operation
	Style     string
	Language  string
	Brand     string

	// Generation knobs join the key only when set so older keys stay valid
	Temperature *float64
	MaxTokens   int
}

var folder = cases.Fold()

// Fold normalizes free text so "Acme", " ACME " and "acme" key the same
func Fold(s string) string {
	return folder.String(norm.NFKC.String(strings.TrimSpace(s)))
}

// NewFingerprint hashes the newline joined tuple
func NewFingerprint(in FingerprintInput) Fingerprint {
	parts := []string{
		in.Target,
		string(in.Provider),
		string(in.Operation),
		Fold(in.Style),
		Fold(in.Language),
		Fold(in.Brand),
	}
	if in.Temperature != nil {
		parts = append(parts, "temperature="+strconv.FormatFloat(*in.Temperature, 'g', -1, 64))
	}
	if in.MaxTokens > 0 {
		parts = append(parts, "max_tokens="+strconv.Itoa(in.MaxTokens))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return Fingerprint(fpPrefix + hex.EncodeToString(sum[:]))
}

// VideoKey keys the provider side video id of an ingested source
func VideoKey(provider ProviderName, target string) Fingerprint {
	sum := sha256.Sum256([]byte(string(provider) + "\n" + target))
	return Fingerprint("vid:v1:" + hex.EncodeToString(sum[:]))
}
