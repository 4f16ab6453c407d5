package source

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/normalize"
)

// Per-field confidence rules for web observations.
const (
	webConfAgree     = 0.95
	webConfDisagree  = 0.5
	webConfNewValue  = 0.8
	webConfNoValue   = 0.3
	webConfFound     = 0.7 // base confidence when any contact info was extracted
	webConfFoundNone = 0.4
)

var (
	webPhoneRe = regexp.MustCompile(`\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	webEmailRe = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
)

// WebAdapter extracts contact details from a provider's practice website and
// scores each extracted field against the on-file record.
type WebAdapter struct {
	client      *http.Client
	limiter     *rate.Limiter
	specialties []string
	userAgent   string
	maxBody     int64
}

// WebOption configures the web adapter.
type WebOption func(*WebAdapter)

// WithWebHTTPClient overrides the default http.Client.
func WithWebHTTPClient(hc *http.Client) WebOption {
	return func(w *WebAdapter) {
		w.client = hc
	}
}

// WithSpecialtyKeywords replaces the default specialty keyword list.
func WithSpecialtyKeywords(keywords []string) WebOption {
	return func(w *WebAdapter) {
		if len(keywords) > 0 {
			w.specialties = keywords
		}
	}
}

// WithWebRateLimit overrides the default fetch rate (1 req/s).
func WithWebRateLimit(rps float64) WebOption {
	return func(w *WebAdapter) {
		if rps > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			w.limiter = nil
		}
	}
}

// NewWebAdapter creates a web adapter with bounded timeouts.
func NewWebAdapter(opts ...WebOption) *WebAdapter {
	w := &WebAdapter{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(1, 1),
		specialties: DefaultSpecialties(),
		userAgent:   "Mozilla/5.0 (compatible; DirectoryBot/1.0)",
		maxBody:     512 * 1024,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Observe fetches the site, extracts phone/email/specialties, and attaches
// a per-field confidence map computed against the on-file record: both
// present and normalized-equal 0.95, present and differing 0.5, only the
// extracted value present 0.8, neither 0.3.
func (w *WebAdapter) Observe(ctx context.Context, siteURL string, p model.Provider) (*model.ObservedRecord, error) {
	text, err := w.fetchText(ctx, siteURL)
	if err != nil {
		return nil, &Error{Kind: model.SourceWeb, Err: err}
	}

	obs := &model.ObservedRecord{
		Kind:             model.SourceWeb,
		FieldConfidences: make(map[string]float64),
	}

	obs.Phone = strings.TrimSpace(webPhoneRe.FindString(text))
	obs.Email = strings.TrimSpace(webEmailRe.FindString(text))

	lower := strings.ToLower(text)
	for _, sp := range w.specialties {
		if strings.Contains(lower, strings.ToLower(sp)) {
			obs.Specialties = append(obs.Specialties, sp)
		}
	}

	obs.FieldConfidences["phone"] = fieldScore(p.Phone, obs.Phone)
	obs.FieldConfidences["email"] = fieldScore(p.Email, obs.Email)

	if obs.Phone != "" || obs.Email != "" {
		obs.Confidence = webConfFound
	} else {
		obs.Confidence = webConfFoundNone
	}

	zap.L().Debug("web observation complete",
		zap.String("provider_id", p.ID),
		zap.String("url", siteURL),
		zap.Bool("phone_found", obs.Phone != ""),
		zap.Bool("email_found", obs.Email != ""),
		zap.Int("specialties", len(obs.Specialties)),
	)
	return obs, nil
}

func fieldScore(original, extracted string) float64 {
	switch {
	case original != "" && extracted != "":
		if normalize.Value(original) == normalize.Value(extracted) {
			return webConfAgree
		}
		return webConfDisagree
	case extracted != "":
		return webConfNewValue
	default:
		return webConfNoValue
	}
}

func (w *WebAdapter) fetchText(ctx context.Context, siteURL string) (string, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "web: rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "web: create request")
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "web: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("web: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBody))
	if err != nil {
		return "", eris.Wrap(err, "web: read body")
	}

	return stripHTML(string(body)), nil
}

// stripHTML removes script/style/nav/footer blocks, strips tags, decodes
// common entities, and collapses whitespace.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	return strings.TrimSpace(html)
}
