package internal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/lintel/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestHTTPConfig_InvalidPort(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("port out of range should fail")
	}
}

func TestSiteConfig_RootRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Site.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty site root should fail")
	}
}

func TestLayoutConfig_BaseOrScriptRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Layout.BaseURL = ""
	cfg.Layout.ScriptURL = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("missing base should fail")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLayoutConfig_ClockInterval(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Layout.ClockInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero clock interval should fail")
	}
	cfg.Layout.ClockInterval = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatal("1ms clock interval should fail")
	}
}

func TestLayoutConfig_TimeZone(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Layout.TimeZone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown time zone should fail")
	}
	cfg.Layout.TimeZone = "UTC"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("UTC should pass: %v", err)
	}
	if cfg.Layout.Location() != time.UTC {
		t.Errorf("Location = %v", cfg.Layout.Location())
	}
}

func TestLayoutConfig_IncompleteAlias(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Layout.Aliases = append(cfg.Layout.Aliases, AliasConfig{Page: "x.html"})
	if err := cfg.Validate(); err == nil {
		t.Fatal("alias without section should fail")
	}
}

func TestFragmentBase(t *testing.T) {
	cfg := NewDefaultConfig()
	if got, want := cfg.FragmentBase(), filepath.Join("./site", "inc"); got != want {
		t.Errorf("default base = %q, want %q", got, want)
	}

	cfg.Layout.BaseURL = "./shared"
	if got := cfg.FragmentBase(); got != "./shared" {
		t.Errorf("base = %q", got)
	}

	cfg.Layout.BaseURL = ""
	cfg.Layout.ScriptURL = "/inc/layout.js"
	if got, want := cfg.FragmentBase(), filepath.Join("./site", "inc"); got != want {
		t.Errorf("base = %q, want %q", got, want)
	}

	cfg.Layout.ScriptURL = "https://cdn.example.org/inc/layout.js"
	if got := cfg.FragmentBase(); got != "https://cdn.example.org/inc" {
		t.Errorf("base = %q", got)
	}
}

func TestFragmentBase_FromYAML(t *testing.T) {
	cfg := NewDefaultConfig()
	data := []byte("layout:\n  script_url: https://cdn.example.org/inc/layout.js\n")
	if err := pkgconfig.Parse(data, cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.FragmentBase(); got != "https://cdn.example.org/inc" {
		t.Errorf("base = %q, want the script directory", got)
	}

	cfg = NewDefaultConfig()
	data = []byte("site:\n  root: /srv/www\nlayout:\n  base_url: https://example.org/shared/\n")
	if err := pkgconfig.Parse(data, cfg); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := cfg.FragmentBase(); got != "https://example.org/shared/" {
		t.Errorf("base = %q, want base_url", got)
	}
}

func TestLayoutConfig_Matcher(t *testing.T) {
	cfg := NewDefaultConfig()
	m := cfg.Layout.Matcher()
	if m.MenuClass != "menu" || m.CurrentClass != "current-menu-item" || len(m.Aliases) != 1 {
		t.Errorf("matcher = %+v", m)
	}
}
