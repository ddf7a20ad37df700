// Package policy answers domain permission queries against the configured
// whitelist and shortlist
package policy

import (
	"bufio"
	"os"
	"strings"

	"unfurl/internal/platform/logger"
)

// List is an immutable set of normalized domains. A nil List means "not
// configured", which is different from an empty configured list.
type List map[string]struct{}

// LoadList builds a List from a line-delimited file. Lines are lowercased
// and trimmed, duplicates collapse, blank lines and #-comments drop out.
// A missing or unreadable file yields an unconfigured list, never an error.
func LoadList(path string) List {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Named("policy").Warn().Str("path", path).Err(err).Msg("domain list unreadable; treating as unconfigured")
		return nil
	}
	defer f.Close()

	l := make(List)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		l[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		logger.Named("policy").Warn().Str("path", path).Err(err).Msg("domain list read failed; treating as unconfigured")
		return nil
	}
	return l
}

// Contains reports set membership; domain must already be normalized
func (l List) Contains(domain string) bool {
	_, ok := l[domain]
	return ok
}

// Configured reports whether the list was loaded at all
func (l List) Configured() bool { return l != nil }

// Policy holds the two domain lists, loaded once at worker startup and
// read-only afterwards, so concurrent requests need no locking
type Policy struct {
	// Shortlist holds domains permitted as an origin to probe
	Shortlist List
	// Whitelist holds domains permitted as a final destination
	Whitelist List
}

// Load builds a Policy from the two list files
func Load(whitelistPath, shortlistPath string) *Policy {
	p := &Policy{
		Shortlist: LoadList(shortlistPath),
		Whitelist: LoadList(whitelistPath),
	}
	logger.Named("policy").Info().
		Int("whitelist", len(p.Whitelist)).
		Bool("whitelist_configured", p.Whitelist.Configured()).
		Int("shortlist", len(p.Shortlist)).
		Bool("shortlist_configured", p.Shortlist.Configured()).
		Msg("domain policy loaded")
	return p
}

// PermitsOrigin decides whether a domain may be probed at all. Fail-open
// when neither list is configured; otherwise membership in either list is
// required.
func (p *Policy) PermitsOrigin(domain string) bool {
	if !p.Shortlist.Configured() && !p.Whitelist.Configured() {
		return true
	}
	return p.Shortlist.Contains(domain) || p.Whitelist.Contains(domain)
}

// PermitsDestination decides whether a domain is an acceptable final
// destination. Fail-open when the whitelist is not configured.
func (p *Policy) PermitsDestination(domain string) bool {
	if !p.Whitelist.Configured() {
		return true
	}
	return p.Whitelist.Contains(domain)
}
