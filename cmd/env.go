package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/directory-cli/internal/enrich"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/reconcile"
	"github.com/sells-group/directory-cli/internal/source"
	"github.com/sells-group/directory-cli/internal/store"
	"github.com/sells-group/directory-cli/pkg/npi"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "providers.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newRegistry() source.Registry {
	opts := []npi.Option{npi.WithRateLimit(cfg.NPI.RateLimit)}
	if cfg.NPI.BaseURL != "" {
		opts = append(opts, npi.WithBaseURL(cfg.NPI.BaseURL))
	}
	return source.NewRegistryAdapter(npi.NewClient(opts...))
}

func newWeb() source.Web {
	return source.NewWebAdapter(source.WithWebRateLimit(cfg.Web.RateLimit))
}

func newEngine() *reconcile.Engine {
	return reconcile.NewEngine(newRegistry(), newWeb(), reconcile.Config{
		SourceTimeout:  time.Duration(cfg.Reconcile.SourceTimeoutSecs) * time.Second,
		ResolveWebsite: websiteFromEmail,
	})
}

func newMerger() *enrich.Merger {
	return enrich.NewMerger(newRegistry(), newWeb(),
		enrich.WithSourceTimeout(time.Duration(cfg.Reconcile.SourceTimeoutSecs)*time.Second),
		enrich.WithWebsiteResolver(websiteFromEmail),
	)
}

// freemailDomains are consumer mail hosts that never identify a practice.
var freemailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"aol.com":     true,
	"icloud.com":  true,
	"example.com": true,
}

// websiteFromEmail guesses a practice website from the provider's email
// domain. Freemail addresses return "" so the web source is skipped.
func websiteFromEmail(p model.Provider) string {
	at := strings.LastIndex(p.Email, "@")
	if at < 0 || at == len(p.Email)-1 {
		return ""
	}
	domain := strings.ToLower(strings.TrimSpace(p.Email[at+1:]))
	if domain == "" || freemailDomains[domain] {
		return ""
	}
	return "https://" + domain
}
