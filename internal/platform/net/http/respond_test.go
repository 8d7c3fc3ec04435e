package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "vidbrief/internal/platform/errors"
	pnet "vidbrief/internal/platform/net"
	phttp "vidbrief/internal/platform/net/http"
)

func reqWithReqID(method, path, rid string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(pnet.WithRequest(req.Context(), rid))
}

func TestRespondOKWritesPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.RespondOK(rec, reqWithReqID("GET", "/x", "rid-1"), map[string]string{"video_id": "abc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type = %q", ct)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["video_id"] != "abc" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRespondErrorBody(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid", perr.InvalidRequestf("youtube_url is required"), 400, "invalid_request"},
		{"unresolvable", perr.Unresolvable([]string{"probe: exit 1"}, "no source"), 422, "unresolvable_source"},
		{"timeout", perr.WithOp(perr.PollTimeoutf("job t1 not ready"), "poll"), 504, "poll_timeout"},
		{"foreign", errors.New("dial tcp: secret"), 500, "internal"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			phttp.RespondError(rec, reqWithReqID("POST", "/summarize", "rid-9"), c.err)
			if rec.Code != c.status {
				t.Fatalf("status = %d, want %d", rec.Code, c.status)
			}
			var body phttp.ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error.Kind != c.kind || body.RequestID != "rid-9" {
				t.Fatalf("body = %+v", body)
			}
			if strings.Contains(rec.Body.String(), "secret") {
				t.Fatalf("cause leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestHandleReturnStyle(t *testing.T) {
	h := phttp.Handle(func(r *http.Request) phttp.Response {
		switch r.URL.Query().Get("m") {
		case "err":
			return phttp.Error(perr.Authenticationf("provider rejected credentials"))
		case "none":
			return phttp.NoContent()
		}
		resp := phttp.OK(map[string]int{"n": 1})
		resp.Header = http.Header{"X-Extra": []string{"1"}}
		return resp
	})

	rec := httptest.NewRecorder()
	h(rec, reqWithReqID("GET", "/?m=ok", "r"))
	if rec.Code != 200 || rec.Header().Get("X-Extra") != "1" {
		t.Fatalf("ok path: %d %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	h(rec, reqWithReqID("GET", "/?m=err", "r"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("err path: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, reqWithReqID("GET", "/?m=none", "r"))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("no content path: %d %q", rec.Code, rec.Body.String())
	}
}
