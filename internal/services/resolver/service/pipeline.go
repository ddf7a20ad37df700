package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	perr "unfurl/internal/platform/errors"
	"unfurl/internal/platform/logger"
	"unfurl/internal/services/resolver/domain"
)

// Resolve runs the full pipeline for one request:
// validate -> domain check -> HEAD probe -> head evaluation -> GET fetch ->
// canonical extraction. Every failure converts into a terminal result on
// the spot; nothing is retried and nothing escapes the request.
//
// Outbound calls deliberately ignore inbound cancellation: a client that
// hangs up mid-flight gets its reply dropped, but the probe runs to
// completion so its outcome stays observable in the logs.
func (s *Svc) Resolve(ctx context.Context, req domain.Request) domain.Result {
	res := domain.Result{
		URL:    req.URL,
		Method: domain.MethodNone,
	}
	defer s.finalize(ctx, req, &res)

	// Validate
	origin, err := url.Parse(req.URL)
	if err != nil || !origin.IsAbs() || origin.Hostname() == "" ||
		(origin.Scheme != "http" && origin.Scheme != "https") {
		res.Method = domain.MethodValidation
		fail(&res, "invalid url")
		return res
	}

	// DomainCheck
	originTLD, err := registrableDomain(origin.Hostname())
	if err != nil || !s.policy.PermitsOrigin(originTLD) {
		res.TLD = originTLD
		fail(&res, "domain not in lists")
		return res
	}
	res.TLD = originTLD

	outboundCtx := context.WithoutCancel(ctx)

	// HeadProbe
	head, err := s.prober.Head(outboundCtx, req.URL)
	if err != nil {
		fail(&res, perr.Root(err).Error())
		return res
	}

	// EvaluateHead
	res.Code = head.Status
	res.CType = head.ContentType
	res.Size = head.ContentLength
	res.URLRetrieved = strptr(head.EffectiveURL)

	finalTLD := originTLD
	finalPermitted := s.policy.PermitsDestination(originTLD)
	if head.EffectiveURL != req.URL {
		res.Method = domain.MethodRedirect
		finalTLD, err = registrableDomainOfURL(head.EffectiveURL)
		finalPermitted = err == nil && s.policy.PermitsDestination(finalTLD)
	} else {
		res.Method = domain.MethodOriginal
	}
	res.TLDRetrieved = finalTLD

	switch {
	case head.Status >= 400:
		fail(&res, fmt.Sprintf("HTTP error: %d", head.Status))
		return res
	case head.ContentType != "" && !strings.Contains(head.ContentType, "text/html"):
		fail(&res, fmt.Sprintf("bad content type: %s", head.ContentType))
		return res
	case head.ContentType == "":
		fail(&res, "no content type")
		return res
	case head.ContentLength > s.maxContent:
		fail(&res, fmt.Sprintf("content to big: %d", head.ContentLength))
		return res
	case !finalPermitted:
		fail(&res, "domain not in whitelist")
		return res
	case s.fetchDisabled || !req.FetchWanted:
		fail(&res, "content fetching disabled")
		return res
	}

	// GetFetch
	res.GetAttempt = true
	page, err := s.fetcher.Get(outboundCtx, head.EffectiveURL)
	if err != nil {
		fail(&res, perr.Root(err).Error())
		return res
	}
	if page.EffectiveURL != head.EffectiveURL {
		res.Method = domain.MethodRedirect
		res.URLRetrieved = strptr(page.EffectiveURL)
		finalTLD, err = registrableDomainOfURL(page.EffectiveURL)
		res.TLDRetrieved = finalTLD
		if err != nil || !s.policy.PermitsDestination(finalTLD) {
			fail(&res, "domain not in whitelist")
			return res
		}
	}

	// Extract
	switch {
	case page.CanonicalURL != "":
		res.Method = domain.MethodCanonical
		res.Canonical = true
		res.URLRetrieved = strptr(page.CanonicalURL)
	case page.OpenGraphURL != "":
		res.Method = domain.MethodOpenGraph
		res.Canonical = true
		res.URLRetrieved = strptr(page.OpenGraphURL)
	default:
		// a page without canonical metadata resolved fine, it just has
		// nothing more authoritative to offer
		res.Reason = strptr("no canonical")
	}
	return res
}

// finalize stamps elapsed time and emits the per-request outcome log
func (s *Svc) finalize(ctx context.Context, req domain.Request, res *domain.Result) {
	if !req.Start.IsZero() {
		res.Elapsed = time.Since(req.Start).Milliseconds()
	}
	ev := logger.C(ctx).Debug()
	if res.Error {
		ev = logger.C(ctx).Info()
	}
	reason := ""
	if res.Reason != nil {
		reason = *res.Reason
	}
	ev.Str("url", res.URL).
		Str("method", string(res.Method)).
		Str("reason", reason).
		Bool("error", res.Error).
		Bool("get_attempt", res.GetAttempt).
		Int64("elapsed_ms", res.Elapsed).
		Msg("resolution done")
}

// fail marks res terminal with reason and the error flag raised
func fail(res *domain.Result, reason string) {
	res.Reason = strptr(reason)
	res.Error = true
}

// registrableDomain reduces a hostname to its registrable (eTLD+1) form
func registrableDomain(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(host, ".")))
	return publicsuffix.EffectiveTLDPlusOne(host)
}

// registrableDomainOfURL is registrableDomain applied to a full URL
func registrableDomainOfURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", perr.InvalidURLf("unparseable effective url %q", raw)
	}
	return registrableDomain(u.Hostname())
}

func strptr(s string) *string { return &s }
