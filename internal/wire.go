package internal

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/starford/lintel/internal/decorator"
	"github.com/starford/lintel/internal/fragment"
	"github.com/starford/lintel/internal/site"
	"github.com/starford/lintel/internal/storage"
	"github.com/starford/lintel/internal/watch"
)

// stack is the decorator pipeline built from a Config.
type stack struct {
	store   *storage.FS
	fetcher fragment.Fetcher // underlying fetcher, below the cache
	cache   *fragment.Cache  // nil unless watcher is set
	watcher *watch.Watcher   // not yet running; nil when fragments are fetched per load
	site    *site.Service
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return a.config, logger, nil
}

// newStack wires storage, fragment fetching, the decorator and the site
// service according to cfg. Fragments are cached only when watchFragments
// is set, the base is a local directory and the watch could be registered;
// otherwise every page load fetches them again.
func newStack(cfg *Config, logger *slog.Logger, watchFragments bool) (*stack, error) {
	store, err := storage.NewFS(cfg.Site.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	base := cfg.FragmentBase()
	fetcher, err := fragment.NewFetcher(base, &http.Client{Timeout: cfg.Layout.FetchTimeout})
	if err != nil {
		return nil, fmt.Errorf("init fragments: %w", err)
	}
	st := &stack{store: store, fetcher: fetcher}

	var source fragment.Fetcher = fetcher
	if dir, ok := fetcher.(*fragment.DirFetcher); ok && watchFragments && dir.Dir() != "" {
		w, err := watch.New(dir.Dir(), slotNames(cfg), logger)
		if err != nil {
			logger.Warn("fragment watcher disabled", slog.String("error", err.Error()))
		} else {
			st.watcher = w
			st.cache = fragment.NewCache(fetcher)
			source = st.cache
		}
	}

	loaderOpts := []fragment.LoaderOption{
		fragment.WithSlots(cfg.Layout.Slots()...),
		fragment.WithErrorMessage(cfg.Layout.ErrorClass, cfg.Layout.ErrorMessage),
		fragment.WithLogger(logger),
	}
	if cfg.Layout.Sanitize {
		loaderOpts = append(loaderOpts, fragment.WithSanitizer(fragment.SanitizePolicy()))
	}
	loader := fragment.NewLoader(source, loaderOpts...)

	deco := decorator.New(loader,
		decorator.WithMatcher(cfg.Layout.Matcher()),
		decorator.WithClock(cfg.Layout.Clock(), cfg.Layout.ClockInterval),
		decorator.WithLogger(logger))

	shell := site.Shell{HeaderID: cfg.Layout.HeaderID, FooterID: cfg.Layout.FooterID}

	logger.Info("Layout configured",
		slog.String("site_root", store.Root()),
		slog.String("fragment_base", base),
		slog.Bool("sanitize", cfg.Layout.Sanitize),
		slog.Bool("cached", st.cache != nil))

	st.site = site.NewService(store, deco, shell, logger)
	return st, nil
}

// slotNames lists the fragment names the watcher reacts to.
func slotNames(cfg *Config) []string {
	slots := cfg.Layout.Slots()
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, s.Name)
	}
	return names
}
