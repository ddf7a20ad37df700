package service

import (
	"context"
	"testing"
	"time"

	perr "unfurl/internal/platform/errors"
	"unfurl/internal/platform/testkit"
	"unfurl/internal/services/resolver/domain"
	"unfurl/internal/services/resolver/policy"
)

type fakeProber struct {
	hr  domain.HeadResult
	err error
}

func (f fakeProber) Head(context.Context, string) (domain.HeadResult, error) { return f.hr, f.err }

type fakeFetcher struct {
	page domain.Page
	err  error
}

func (f fakeFetcher) Get(context.Context, string) (domain.Page, error) { return f.page, f.err }

func openPolicy() *policy.Policy { return &policy.Policy{} }

func newSvc(pol *policy.Policy, p domain.Prober, f domain.Fetcher) *Svc {
	return New(Options{
		Policy:           pol,
		Prober:           p,
		Fetcher:          f,
		MaxContentLength: 2097152,
	})
}

func request(url string) domain.Request {
	return domain.Request{URL: url, FetchWanted: true, Start: time.Now()}
}

func reason(res domain.Result) string {
	if res.Reason == nil {
		return ""
	}
	return *res.Reason
}

func TestResolveRejectsMalformedInput(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{}, fakeFetcher{})

	for _, in := range []string{"", "not a url", "ftp://example.com/file", "http://", "/relative/path"} {
		res := svc.Resolve(context.Background(), request(in))
		if !res.Error {
			t.Errorf("%q: error = false, want true", in)
		}
		if res.Method != domain.MethodValidation {
			t.Errorf("%q: method = %q, want %q", in, res.Method, domain.MethodValidation)
		}
		if reason(res) != "invalid url" {
			t.Errorf("%q: reason = %q, want invalid url", in, reason(res))
		}
		if res.URLRetrieved != nil {
			t.Errorf("%q: url_retrieved = %v, want nil", in, *res.URLRetrieved)
		}
	}
}

func TestResolveOriginNotListed(t *testing.T) {
	t.Parallel()
	pol := &policy.Policy{Shortlist: policy.List{"bit.ly": {}}}
	svc := newSvc(pol, fakeProber{}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("https://evil.example.org/x"))
	if reason(res) != "domain not in lists" || !res.Error {
		t.Fatalf("got reason=%q error=%v, want domain not in lists / true", reason(res), res.Error)
	}
	if res.Method != domain.MethodNone {
		t.Fatalf("method = %q, want none", res.Method)
	}
}

func TestResolveFailOpenWithoutLists(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://anything.example.net/page",
		Status:       200,
		ContentType:  "text/html",
	}}, fakeFetcher{page: domain.Page{
		EffectiveURL: "https://anything.example.net/page",
		CanonicalURL: "https://anything.example.net/canon",
	}})

	res := svc.Resolve(context.Background(), request("https://anything.example.net/page"))
	if res.Error {
		t.Fatalf("error = true (reason %q), want resolution to proceed fail-open", reason(res))
	}
	if res.Method != domain.MethodCanonical {
		t.Fatalf("method = %q, want canonical", res.Method)
	}
}

func TestResolveStatusBeatsSize(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL:  "https://example.com/big",
		Status:        500,
		ContentType:   "text/html",
		ContentLength: 5000000,
	}}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("https://example.com/big"))
	if reason(res) != "HTTP error: 500" {
		t.Fatalf("reason = %q, want HTTP error: 500", reason(res))
	}
	if res.GetAttempt {
		t.Fatal("get_attempt = true, want false")
	}
}

func TestResolveContentTooBig(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL:  "https://example.com/big",
		Status:        200,
		ContentType:   "text/html",
		ContentLength: 5000000,
	}}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("https://example.com/big"))
	if reason(res) != "content to big: 5000000" {
		t.Fatalf("reason = %q, want content to big: 5000000", reason(res))
	}
	if res.GetAttempt {
		t.Fatal("get_attempt = true, want false")
	}
	if !res.Error {
		t.Fatal("error = false, want true")
	}
}

func TestResolveBadContentType(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://example.com/img",
		Status:       200,
		ContentType:  "image/png",
	}}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("https://example.com/img"))
	if reason(res) != "bad content type: image/png" {
		t.Fatalf("reason = %q", reason(res))
	}
}

func TestResolveMissingContentType(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://example.com/raw",
		Status:       200,
	}}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("https://example.com/raw"))
	if reason(res) != "no content type" {
		t.Fatalf("reason = %q, want no content type", reason(res))
	}
}

func TestResolveRedirectDestinationNotWhitelisted(t *testing.T) {
	t.Parallel()
	pol := &policy.Policy{
		Shortlist: policy.List{"bit.ly": {}},
		Whitelist: policy.List{"example.com": {}},
	}
	svc := newSvc(pol, fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://sketchy.example.org/landing",
		Status:       200,
		ContentType:  "text/html",
	}}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("http://bit.ly/xyz"))
	if reason(res) != "domain not in whitelist" {
		t.Fatalf("reason = %q, want domain not in whitelist", reason(res))
	}
	if res.Method != domain.MethodRedirect {
		t.Fatalf("method = %q, want redirect", res.Method)
	}
	if res.TLDRetrieved != "example.org" {
		t.Fatalf("tld_retrieved = %q, want example.org", res.TLDRetrieved)
	}
}

func TestResolveFetchDisabledGlobally(t *testing.T) {
	t.Parallel()
	svc := New(Options{
		Policy: openPolicy(),
		Prober: fakeProber{hr: domain.HeadResult{
			EffectiveURL: "https://example.com/a",
			Status:       200,
			ContentType:  "text/html",
		}},
		Fetcher:          fakeFetcher{},
		FetchDisabled:    true,
		MaxContentLength: 2097152,
	})

	res := svc.Resolve(context.Background(), request("https://example.com/a"))
	if reason(res) != "content fetching disabled" {
		t.Fatalf("reason = %q, want content fetching disabled", reason(res))
	}
	if res.GetAttempt {
		t.Fatal("get_attempt = true, want false")
	}
}

func TestResolveFetchDeclinedByCaller(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://example.com/a",
		Status:       200,
		ContentType:  "text/html",
	}}, fakeFetcher{})

	req := request("https://example.com/a")
	req.FetchWanted = false
	res := svc.Resolve(context.Background(), req)
	if reason(res) != "content fetching disabled" {
		t.Fatalf("reason = %q, want content fetching disabled", reason(res))
	}
}

func TestResolveEndToEndCanonical(t *testing.T) {
	t.Parallel()
	pol := &policy.Policy{
		Shortlist: policy.List{"bit.ly": {}},
		Whitelist: policy.List{"example.com": {}},
	}
	svc := newSvc(pol, fakeProber{hr: domain.HeadResult{
		EffectiveURL:  "https://example.com/article",
		Status:        200,
		ContentType:   "text/html; charset=utf-8",
		ContentLength: 4096,
	}}, fakeFetcher{page: domain.Page{
		EffectiveURL: "https://example.com/article",
		CanonicalURL: "https://example.com/article-canonical",
	}})

	res := svc.Resolve(context.Background(), request("http://bit.ly/xyz"))
	if res.Error {
		t.Fatalf("error = true, reason %q", reason(res))
	}
	if res.Method != domain.MethodCanonical {
		t.Fatalf("method = %q, want canonical", res.Method)
	}
	if res.URLRetrieved == nil || *res.URLRetrieved != "https://example.com/article-canonical" {
		t.Fatalf("url_retrieved = %v", res.URLRetrieved)
	}
	if !res.Canonical || !res.GetAttempt {
		t.Fatalf("canonical = %v get_attempt = %v, want both true", res.Canonical, res.GetAttempt)
	}
	if res.TLD != "bit.ly" || res.TLDRetrieved != "example.com" {
		t.Fatalf("tld = %q tld_retrieved = %q", res.TLD, res.TLDRetrieved)
	}
	if res.Code != 200 {
		t.Fatalf("code = %d, want 200", res.Code)
	}
}

func TestResolveOpenGraphFallback(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://example.com/article",
		Status:       200,
		ContentType:  "text/html",
	}}, fakeFetcher{page: domain.Page{
		EffectiveURL: "https://example.com/article",
		OpenGraphURL: "https://example.com/article-og",
	}})

	res := svc.Resolve(context.Background(), request("https://example.com/article"))
	if res.Method != domain.MethodOpenGraph {
		t.Fatalf("method = %q, want opengraph", res.Method)
	}
	if !res.Canonical {
		t.Fatal("canonical = false, want true")
	}
	if res.URLRetrieved == nil || *res.URLRetrieved != "https://example.com/article-og" {
		t.Fatalf("url_retrieved = %v", res.URLRetrieved)
	}
}

func TestResolveNoCanonicalIsSoft(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://example.com/plain",
		Status:       200,
		ContentType:  "text/html",
	}}, fakeFetcher{page: domain.Page{
		EffectiveURL: "https://example.com/plain",
	}})

	res := svc.Resolve(context.Background(), request("https://example.com/plain"))
	if res.Error {
		t.Fatal("error = true, want soft outcome")
	}
	if reason(res) != "no canonical" {
		t.Fatalf("reason = %q, want no canonical", reason(res))
	}
	if res.Canonical {
		t.Fatal("canonical = true, want false")
	}
	if res.Method != domain.MethodOriginal {
		t.Fatalf("method = %q, want original", res.Method)
	}
}

func TestResolveHeadNetworkFailure(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{
		err: perr.Networkf("dial tcp: connection refused"),
	}, fakeFetcher{})

	res := svc.Resolve(context.Background(), request("https://example.com/x"))
	if !res.Error {
		t.Fatal("error = false, want true")
	}
	testkit.MustContain(t, reason(res), "connection refused")
	if res.GetAttempt {
		t.Fatal("get_attempt = true, want false")
	}
}

func TestResolveGetFailureAfterCleanHead(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{hr: domain.HeadResult{
		EffectiveURL: "https://example.com/x",
		Status:       200,
		ContentType:  "text/html",
	}}, fakeFetcher{
		err: perr.Networkf("read tcp: i/o timeout"),
	})

	res := svc.Resolve(context.Background(), request("https://example.com/x"))
	if !res.Error || !res.GetAttempt {
		t.Fatalf("error = %v get_attempt = %v, want both true", res.Error, res.GetAttempt)
	}
	testkit.MustContain(t, reason(res), "i/o timeout")
}

func TestResolveElapsedIsStamped(t *testing.T) {
	t.Parallel()
	svc := newSvc(openPolicy(), fakeProber{}, fakeFetcher{})

	req := request("not a url")
	req.Start = time.Now().Add(-50 * time.Millisecond)
	res := svc.Resolve(context.Background(), req)
	if res.Elapsed < 50 {
		t.Fatalf("elapsed = %d, want >= 50", res.Elapsed)
	}
}
