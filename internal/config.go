package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lintel/internal/clock"
	"github.com/starford/lintel/internal/fragment"
	"github.com/starford/lintel/internal/nav"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Site   SiteConfig        `yaml:"site"`
	Layout LayoutConfig      `yaml:"layout"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	return c.Layout.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig points at the directory of pages to serve.
type SiteConfig struct {
	Root  string `yaml:"root"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// AliasConfig maps a parameterized page onto a section link.
type AliasConfig struct {
	Page    string `yaml:"page"`
	Section string `yaml:"section"`
}

// LayoutConfig describes where fragments live and the markup contract of
// the pages they are injected into.
//
// BaseURL is an http(s) URL, a file:// URL or a directory. When it is empty
// the base is derived from ScriptURL: the directory holding the layout
// script, taken relative to the site root unless it is an http(s) URL.
type LayoutConfig struct {
	BaseURL       string        `yaml:"base_url"`
	ScriptURL     string        `yaml:"script_url"`
	HeaderID      string        `yaml:"header_id"`
	FooterID      string        `yaml:"footer_id"`
	DateID        string        `yaml:"date_id"`
	TimeID        string        `yaml:"time_id"`
	MenuClass     string        `yaml:"menu_class"`
	CurrentClass  string        `yaml:"current_class"`
	ErrorClass    string        `yaml:"error_class"`
	ErrorMessage  string        `yaml:"error_message"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	ClockInterval time.Duration `yaml:"clock_interval"`
	TimeZone      string        `yaml:"time_zone"`
	Sanitize      bool          `yaml:"sanitize"`
	Aliases       []AliasConfig `yaml:"aliases"`
}

// Validate validates the layout configuration.
func (c *LayoutConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.HeaderID, validation.Required),
		validation.Field(&c.FooterID, validation.Required),
		validation.Field(&c.DateID, validation.Required),
		validation.Field(&c.TimeID, validation.Required),
		validation.Field(&c.MenuClass, validation.Required),
		validation.Field(&c.CurrentClass, validation.Required),
		validation.Field(&c.ErrorClass, validation.Required),
		validation.Field(&c.ErrorMessage, validation.Required),
		validation.Field(&c.FetchTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ClockInterval, validation.Required, validation.Min(10*time.Millisecond)),
	); err != nil {
		return err
	}
	if strings.TrimSpace(c.BaseURL) == "" && strings.TrimSpace(c.ScriptURL) == "" {
		return fmt.Errorf("layout: one of base_url or script_url is required")
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("layout: time_zone: %w", err)
		}
	}
	for i, a := range c.Aliases {
		if a.Page == "" || a.Section == "" {
			return fmt.Errorf("layout: aliases[%d]: page and section are required", i)
		}
	}
	return nil
}

// Location returns the clock time zone, time.Local when unset.
func (c *LayoutConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Matcher builds the navigation matcher.
func (c *LayoutConfig) Matcher() nav.Matcher {
	aliases := make([]nav.Alias, 0, len(c.Aliases))
	for _, a := range c.Aliases {
		aliases = append(aliases, nav.Alias{Page: a.Page, Section: a.Section})
	}
	return nav.Matcher{
		MenuClass:    c.MenuClass,
		CurrentClass: c.CurrentClass,
		Aliases:      aliases,
	}
}

// Clock builds the clock updater.
func (c *LayoutConfig) Clock() clock.Updater {
	return clock.Updater{DateID: c.DateID, TimeID: c.TimeID, Location: c.Location()}
}

// Slots returns the header and footer slots with the configured ids.
func (c *LayoutConfig) Slots() []fragment.Slot {
	return []fragment.Slot{
		{Name: "header", PlaceholderID: c.HeaderID, Clock: true},
		{Name: "footer", PlaceholderID: c.FooterID},
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	aliases := make([]AliasConfig, 0, len(nav.DefaultAliases))
	for _, a := range nav.DefaultAliases {
		aliases = append(aliases, AliasConfig{Page: a.Page, Section: a.Section})
	}
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Root:  "./site",
			Watch: true,
		},
		Layout: LayoutConfig{
			ScriptURL:     "/inc/layout.js",
			HeaderID:      fragment.DefaultHeaderID,
			FooterID:      fragment.DefaultFooterID,
			DateID:        clock.DefaultDateID,
			TimeID:        clock.DefaultTimeID,
			MenuClass:     nav.DefaultMenuClass,
			CurrentClass:  nav.DefaultCurrentClass,
			ErrorClass:    fragment.DefaultErrorClass,
			ErrorMessage:  fragment.DefaultErrorMessage,
			FetchTimeout:  10 * time.Second,
			ClockInterval: time.Second,
			Aliases:       aliases,
		},
	}
}

// FragmentBase resolves where the fragments are fetched from.
func (c *Config) FragmentBase() string {
	if c.Layout.BaseURL != "" {
		return c.Layout.BaseURL
	}
	base := fragment.BaseFromScriptURL(c.Layout.ScriptURL)
	lower := strings.ToLower(base)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return base
	}
	return filepath.Join(c.Site.Root, filepath.FromSlash(strings.TrimPrefix(base, "/")))
}
