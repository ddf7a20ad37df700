// Package domain holds the resolution contracts shared by transport and service
package domain

import "time"

// Method names how the retrieved URL was established. It only ever
// advances forward: none -> original -> redirect -> canonical|opengraph.
type Method string

const (
	// MethodNone means no resolution has happened yet
	MethodNone Method = "none"
	// MethodOriginal means the probe ended on the requested URL itself
	MethodOriginal Method = "original"
	// MethodRedirect means the probe followed at least one redirect
	MethodRedirect Method = "redirect"
	// MethodCanonical means the page declared a rel=canonical link
	MethodCanonical Method = "canonical"
	// MethodOpenGraph means the page declared an og:url property
	MethodOpenGraph Method = "opengraph"
	// MethodValidation marks inputs rejected before any resolution
	MethodValidation Method = "url validation"
)

// Request is one resolution request, owned by a single pipeline execution
type Request struct {
	URL string

	// FetchWanted is the caller-level permission to fetch content; the
	// service may still refuse when fetching is disabled globally
	FetchWanted bool

	// Start anchors elapsed-time accounting
	Start time.Time
}

// Result is the accumulating outcome record, finalized exactly once and
// serialized as the reply body
type Result struct {
	URL          string  `json:"url"`
	URLRetrieved *string `json:"url_retrieved"`
	Method       Method  `json:"method"`
	Reason       *string `json:"reason"`
	Error        bool    `json:"error"`
	GetAttempt   bool    `json:"get_attempt"`
	Canonical    bool    `json:"canonical"`
	Elapsed      int64   `json:"elapsed"`
	TLD          string  `json:"tld"`
	TLDRetrieved string  `json:"tld_retrieved"`
	Code         int     `json:"code"`
	CType        string  `json:"ctype"`
	Size         int64   `json:"size"`
}

// HeadResult is what a redirect probe reports back
type HeadResult struct {
	// EffectiveURL is the URL after all redirects, always set on success
	EffectiveURL  string
	Status        int
	ContentType   string
	ContentLength int64
}

// Page is a fetched, parsed HTML document reduced to what resolution needs
type Page struct {
	// EffectiveURL is the URL after any redirects during the GET
	EffectiveURL string
	// CanonicalURL is the link rel=canonical href, empty if absent
	CanonicalURL string
	// OpenGraphURL is the meta og:url content, empty if absent
	OpenGraphURL string
}
