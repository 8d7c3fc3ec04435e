package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	kit "vidbrief/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	media := New().Prefix("MEDIA_")
	if got := media.key("POLL_TIMEOUT"); got != "MEDIA_POLL_TIMEOUT" {
		t.Fatalf("key() = %q", got)
	}
	nested := media.Prefix("CACHE_")
	if got := nested.key("TTL"); got != "MEDIA_CACHE_TTL" {
		t.Fatalf("nested key() = %q", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("TWELVELABS_")
	t.Setenv("TWELVELABS_API_KEY", "  tl-key ")
	if got := c.MustString("API_KEY"); got != "tl-key" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMustDuration(t *testing.T) {
	c := New().Prefix("D_")
	t.Setenv("D_TIMEOUT", " 250ms ")
	if got := c.MustDuration("TIMEOUT"); got != 250*time.Millisecond {
		t.Fatalf("MustDuration = %v", got)
	}
	t.Setenv("D_BAD", "nope")
	kit.MustPanic(t, func() { _ = c.MustDuration("BAD") })
}

func TestHasAndMayFirst(t *testing.T) {
	c := New()
	t.Setenv("RAPIDAPI_API_KEY", "legacy")
	if c.Has("RAPIDAPI_KEY") {
		t.Fatalf("Has reported an unset key")
	}
	if got := c.MayFirst("none", "RAPIDAPI_KEY", "RAPIDAPI_API_KEY"); got != "legacy" {
		t.Fatalf("MayFirst = %q, want legacy", got)
	}
	t.Setenv("RAPIDAPI_KEY", "current")
	if got := c.MayFirst("none", "RAPIDAPI_KEY", "RAPIDAPI_API_KEY"); got != "current" {
		t.Fatalf("MayFirst = %q, want current", got)
	}
}

func TestMayScalars(t *testing.T) {
	c := New().Prefix("S_")
	if got := c.MayString("MISSING", "def"); got != "def" {
		t.Fatalf("MayString default = %q", got)
	}
	t.Setenv("S_INT", " 7 ")
	t.Setenv("S_BADINT", "x")
	if c.MayInt("INT", 0) != 7 || c.MayInt("BADINT", 3) != 3 {
		t.Fatalf("MayInt mismatch")
	}
	t.Setenv("S_RPS", "2.5")
	if c.MayFloat64("RPS", 1) != 2.5 {
		t.Fatalf("MayFloat64 mismatch")
	}
}

func TestMayBool(t *testing.T) {
	c := New().Prefix("B_")
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"off", true, false},
		{"nope", false, false},
	}
	for _, tc := range cases {
		t.Setenv("B_FLAG", tc.val)
		if got := c.MayBool("FLAG", tc.def); got != tc.want {
			t.Fatalf("MayBool(%q, %v) = %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

func TestMayDuration(t *testing.T) {
	c := New().Prefix("DUR_")
	if got := c.MayDuration("MISS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("MayDuration default expected")
	}
	t.Setenv("DUR_OK", "150ms")
	if got := c.MayDuration("OK", time.Second); got != 150*time.Millisecond {
		t.Fatalf("MayDuration ok = %v", got)
	}
	t.Setenv("DUR_SECS", "10")
	if got := c.MayDuration("SECS", time.Second); got != 10*time.Second {
		t.Fatalf("MayDuration bare seconds = %v", got)
	}
	t.Setenv("DUR_BAD", "nope")
	if got := c.MayDuration("BAD", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration bad -> default expected")
	}
}

func TestMayCSVAndInts(t *testing.T) {
	c := New().Prefix("CSV_")
	t.Setenv("CSV_VALS", " one, two , ,three ,, ")
	got := c.MayCSV("VALS", nil)
	if len(got) != 3 || got[0] != "one" || got[2] != "three" {
		t.Fatalf("MayCSV = %#v", got)
	}
	t.Setenv("CSV_EMPTY", " , ,")
	if got := c.MayCSV("EMPTY", []string{"fallback"}); len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("MayCSV all-empty -> default mismatch: %#v", got)
	}

	t.Setenv("CSV_ITAGS", "22, x ,18")
	ints := c.MayInts("ITAGS", []int{1})
	if len(ints) != 2 || ints[0] != 22 || ints[1] != 18 {
		t.Fatalf("MayInts = %#v", ints)
	}
	if got := c.MayInts("MISSING", []int{22, 18}); len(got) != 2 {
		t.Fatalf("MayInts default = %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	if got := c.MayEnum("MISS", "twelvelabs", "twelvelabs", "cloudglue"); got != "twelvelabs" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("E_PROVIDER", "CloudGlue")
	if got := c.MayEnum("PROVIDER", "twelvelabs", "twelvelabs", "cloudglue"); got != "cloudglue" {
		t.Fatalf("MayEnum allowed value = %q", got)
	}
	t.Setenv("E_BAD", "openai")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "twelvelabs", "twelvelabs", "cloudglue") })
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, ".env")
	if err := os.WriteFile(f, []byte("VB_DOTENV_A=file\nVB_DOTENV_B=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VB_DOTENV_A", "process")
	t.Setenv("VB_DOTENV_B", "")
	_ = os.Unsetenv("VB_DOTENV_B")
	t.Cleanup(func() { _ = os.Unsetenv("VB_DOTENV_B") })

	LoadDotEnv(f, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("VB_DOTENV_A"); got != "process" {
		t.Fatalf("dotenv overrode process env: %q", got)
	}
	if got := os.Getenv("VB_DOTENV_B"); got != "file" {
		t.Fatalf("dotenv did not load B: %q", got)
	}
}
