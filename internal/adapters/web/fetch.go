package web

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"

	perr "unfurl/internal/platform/errors"
	"unfurl/internal/platform/logger"
	"unfurl/internal/services/resolver/domain"
)

// Fetcher issues GETs and reduces the HTML body to canonical metadata
type Fetcher struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewFetcher builds a Fetcher with a cookie jar so sites that set a
// session cookie and then redirect still resolve
func NewFetcher(o Options) *Fetcher {
	o.defaults()
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Fetcher{
		http: newClient(o, jar),
		opts: o,
		log:  *logger.Named("fetch"),
	}
}

// Get downloads url, decompresses and decodes the body, parses it as HTML
// and extracts the declared canonical and og:url values. The body read is
// capped at MaxBody bytes no matter what the headers claimed.
func (f *Fetcher) Get(ctx context.Context, url string) (domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Page{}, perr.Wrap(err, perr.ErrorCodeNetwork, "get request build failed")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	// setting the header by hand opts out of the transport's transparent
	// gzip, so decompression below is ours to do
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := f.http.Do(req)
	if err != nil {
		return domain.Page{}, perr.Wrap(err, perr.ErrorCodeNetwork, "get failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return domain.Page{}, perr.Newf(perr.ErrorCodeUpstreamStatus, "HTTP error: %d", resp.StatusCode)
	}

	body, err := f.readBody(resp)
	if err != nil {
		return domain.Page{}, err
	}

	utf8Body, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return domain.Page{}, perr.Wrap(err, perr.ErrorCodeHTMLParse, "charset detection failed")
	}
	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return domain.Page{}, perr.Wrap(err, perr.ErrorCodeHTMLParse, "html parse failed")
	}

	page := domain.Page{
		EffectiveURL: resp.Request.URL.String(),
		CanonicalURL: extractCanonical(doc),
		OpenGraphURL: extractOpenGraph(doc),
	}
	f.log.Debug().
		Str("url", url).
		Str("effective", page.EffectiveURL).
		Str("canonical", page.CanonicalURL).
		Str("og_url", page.OpenGraphURL).
		Int("body_bytes", len(body)).
		Msg("page fetched")
	return page, nil
}

// readBody applies the Content-Encoding the server actually used and caps
// the decompressed read at MaxBody
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	var rd io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeHTMLParse, "gzip body corrupt")
		}
		defer gz.Close()
		rd = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		rd = fl
	}

	body, err := io.ReadAll(io.LimitReader(rd, f.opts.MaxBody+1))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeNetwork, "body read failed")
	}
	if int64(len(body)) > f.opts.MaxBody {
		return nil, perr.Newf(perr.ErrorCodeContentTooLarge, "content to big: %d", len(body))
	}
	return body, nil
}
