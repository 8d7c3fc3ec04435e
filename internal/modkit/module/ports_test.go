package module

import (
	"testing"

	phttp "vidbrief/internal/platform/net/http"
	"vidbrief/internal/platform/testkit"
)

type Summarizer interface{ Summarize() string }

type summarizer struct{ out string }

func (s summarizer) Summarize() string { return s.out }

type fakeModule struct {
	name  string
	ports any
}

func (m fakeModule) Name() string             { return m.name }
func (m fakeModule) Ports() any               { return m.ports }
func (m fakeModule) MountRoutes(phttp.Router) {}

type mediaPorts struct {
	Svc      Summarizer
	internal Summarizer
}

func TestPortsOf(t *testing.T) {
	cases := []struct {
		name   string
		ports  any
		wantOK bool
		want   string
	}{
		{"nil ports", nil, false, ""},
		{"direct", summarizer{out: "direct"}, true, "direct"},
		{"exported field", mediaPorts{Svc: summarizer{out: "field"}}, true, "field"},
		{"unexported only", mediaPorts{internal: summarizer{out: "hidden"}}, false, ""},
		{"primitive", 7, false, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := PortsOf[Summarizer](fakeModule{name: "media", ports: c.ports})
			if ok != c.wantOK {
				t.Fatalf("ok = %v, want %v", ok, c.wantOK)
			}
			if ok && got.Summarize() != c.want {
				t.Fatalf("got %q, want %q", got.Summarize(), c.want)
			}
		})
	}
}

func TestMustPortsOfPanicsWithModuleName(t *testing.T) {
	testkit.MustPanic(t, func() { _ = MustPortsOf[Summarizer](fakeModule{name: "media"}) })
	got := MustPortsOf[Summarizer](fakeModule{ports: mediaPorts{Svc: summarizer{out: "ok"}}})
	if got.Summarize() != "ok" {
		t.Fatalf("MustPortsOf = %q", got.Summarize())
	}
}
