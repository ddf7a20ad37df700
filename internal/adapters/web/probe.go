package web

import (
	"context"
	"net/http"

	perr "unfurl/internal/platform/errors"
	"unfurl/internal/platform/logger"
	"unfurl/internal/services/resolver/domain"
)

// Probe issues HEAD requests and reports the post-redirect effective URL
type Probe struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewProbe builds a Probe; no cookie jar, a HEAD carries no session
func NewProbe(o Options) *Probe {
	o.defaults()
	return &Probe{
		http: newClient(o, nil),
		opts: o,
		log:  *logger.Named("probe"),
	}
}

// Head resolves url by following redirects and reports response metadata.
// The effective URL always reflects the final hop, so callers can compare
// it against the requested URL to detect that a redirect occurred.
func (p *Probe) Head(ctx context.Context, url string) (domain.HeadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return domain.HeadResult{}, perr.Wrap(err, perr.ErrorCodeNetwork, "head request build failed")
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return domain.HeadResult{}, perr.Wrap(err, perr.ErrorCodeNetwork, "head failed")
	}
	defer resp.Body.Close()

	hr := domain.HeadResult{
		EffectiveURL:  resp.Request.URL.String(),
		Status:        resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	p.log.Debug().
		Str("url", url).
		Str("effective", hr.EffectiveURL).
		Int("status", hr.Status).
		Str("ctype", hr.ContentType).
		Int64("size", hr.ContentLength).
		Msg("head probe done")
	return hr, nil
}
