package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeInvalidRequest, http.StatusBadRequest},
		{ErrorCodeUnresolvableSource, http.StatusUnprocessableEntity},
		{ErrorCodeProviderRejectedSource, http.StatusUnprocessableEntity},
		{ErrorCodeUnauthorized, http.StatusUnauthorized},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeTransientProvider, http.StatusServiceUnavailable},
		{ErrorCodeAuthentication, http.StatusBadGateway},
		{ErrorCodeProviderJobFailed, http.StatusBadGateway},
		{ErrorCodePollTimeout, http.StatusGatewayTimeout},
		{ErrorCodeDB, http.StatusInternalServerError},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError}, // default branch
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestKinds(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrorCodeInvalidRequest:         "invalid_request",
		ErrorCodeUnresolvableSource:     "unresolvable_source",
		ErrorCodeAuthentication:         "authentication",
		ErrorCodeProviderRejectedSource: "provider_rejected_source",
		ErrorCodeTransientProvider:      "transient_provider",
		ErrorCodePollTimeout:            "poll_timeout",
		ErrorCodeProviderJobFailed:      "provider_job_failed",
		ErrorCodeCacheUnavailable:       "cache_unavailable",
		9999:                            "internal",
	}
	for code, want := range cases {
		if got := code.Kind(); got != want {
			t.Fatalf("Kind(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	// nil *Error should render "<nil>"
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeValidation, "bad stuff")
	if CodeOf(e1) != ErrorCodeValidation {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeJSON, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeDB, "db failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	e4 := Wrapf(src, ErrorCodeAuthentication, "nope %s", "here")
	if want := "nope here: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}
	if got, ok := As(e4); !ok || got.Code() != ErrorCodeAuthentication {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	// copy-on-write mutators
	e5 := Wrap(src, ErrorCodeInvalidRequest, "oops")
	e6 := WithField(e5, "youtube_url")
	e7 := WithOp(e6, "resolve")
	e8 := WithDetails(e7, map[string]string{"a": "b"})
	if fe, ok := As(e6); !ok || fe.Field() != "youtube_url" {
		t.Fatalf("WithField failed")
	}
	if oe, ok := As(e7); !ok || oe.Op() != "resolve" {
		t.Fatalf("WithOp failed")
	}
	if de, ok := As(e8); !ok || de.Details() == nil {
		t.Fatalf("WithDetails failed")
	}
	if fe0, _ := As(e5); fe0.Field() != "" || fe0.Op() != "" {
		t.Fatalf("copy-on-write mutated original")
	}

	// innermost stage wins
	if oe, _ := As(WithOp(e7, "submit")); oe.Op() != "resolve" {
		t.Fatalf("WithOp overwrote existing stage: %q", oe.Op())
	}
}

func TestWireNeverLeaksCause(t *testing.T) {
	secret := stderrs.New("x-api-key: sk-123 rejected")
	err := WithOp(Wrap(secret, ErrorCodeAuthentication, "twelvelabs rejected credentials"), "submit")
	w := WireFrom(err)
	if w.Kind != "authentication" || w.Stage != "submit" {
		t.Fatalf("wire mismatch: %+v", w)
	}
	if w.Message != "twelvelabs rejected credentials" {
		t.Fatalf("wire message leaked cause: %q", w.Message)
	}
	if wf := WireFrom(nil); wf.Code != 0 || wf.Message != "" {
		t.Fatalf("WireFrom(nil) expected zero, got %+v", wf)
	}
	if wf := WireFrom(secret); wf.Kind != "internal" || wf.Message != "internal error" {
		t.Fatalf("WireFrom(foreign) leaked: %+v", wf)
	}
}

func TestUnresolvableCarriesDetails(t *testing.T) {
	details := []string{"rapid: no format", "probe: exit 1"}
	err := Unresolvable(details, "no strategy resolved %s", "abc")
	if !IsCode(err, ErrorCodeUnresolvableSource) {
		t.Fatalf("code = %v", CodeOf(err))
	}
	e, _ := As(err)
	if got, ok := e.Details().([]string); !ok || len(got) != 2 {
		t.Fatalf("details lost: %#v", e.Details())
	}
}

func TestSugarCodes(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{NotFoundf("x"), ErrorCodeNotFound},
		{JSONErrf("x"), ErrorCodeJSON},
		{PanicErrf("x"), ErrorCodePanic},
		{Unavailablef("x"), ErrorCodeUnavailable},
		{Internalf("x"), ErrorCodeUnknown},
		{InvalidRequestf("x"), ErrorCodeInvalidRequest},
		{Authenticationf("x"), ErrorCodeAuthentication},
		{Rejectedf("x"), ErrorCodeProviderRejectedSource},
		{Transientf("x"), ErrorCodeTransientProvider},
		{PollTimeoutf("x"), ErrorCodePollTimeout},
		{JobFailedf("x"), ErrorCodeProviderJobFailed},
	}
	for _, c := range cases {
		if !IsCode(c.err, c.code) {
			t.Fatalf("%v: code = %v, want %v", c.err, CodeOf(c.err), c.code)
		}
	}

	if WrapIf(nil, ErrorCodeDB, "ignored") != nil {
		t.Fatalf("WrapIf(nil) should return nil")
	}
	deep := fmt.Errorf("level2: %w", fmt.Errorf("level1: %w", stderrs.New("root")))
	if got := Root(deep); got == nil || got.Error() != "root" {
		t.Fatalf("Root() failed, got %v", got)
	}
	if !IsCode(ErrNotFound, ErrorCodeNotFound) {
		t.Fatalf("ErrNotFound code mismatch")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient provider", Transientf("503"), true},
		{"rate limited", Newf(ErrorCodeTooManyRequests, "429"), true},
		{"wrapped transient", fmt.Errorf("poll: %w", Transientf("blip")), true},
		{"auth", Authenticationf("401"), false},
		{"job failed", JobFailedf("boom"), false},
		{"canceled", context.Canceled, false},
		{"foreign", stderrs.New("x"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsTransient(c.err); got != c.want {
				t.Fatalf("IsTransient = %v, want %v", got, c.want)
			}
		})
	}
}
