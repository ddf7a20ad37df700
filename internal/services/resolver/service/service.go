// Package service implements the resolution pipeline behind ServicePort
package service

import (
	"unfurl/internal/platform/logger"
	"unfurl/internal/services/resolver/domain"
	"unfurl/internal/services/resolver/policy"
)

// Options configures the resolver service
type Options struct {
	Policy  *policy.Policy
	Prober  domain.Prober
	Fetcher domain.Fetcher

	// FetchDisabled turns content fetching off globally, overriding any
	// per-request wish
	FetchDisabled bool

	// MaxContentLength is the largest content-length a probe may report
	// before the destination is refused
	MaxContentLength int64
}

// Svc implements domain.ServicePort
type Svc struct {
	policy        *policy.Policy
	prober        domain.Prober
	fetcher       domain.Fetcher
	fetchDisabled bool
	maxContent    int64
	log           logger.Logger
}

// New builds the resolver service
func New(o Options) *Svc {
	return &Svc{
		policy:        o.Policy,
		prober:        o.Prober,
		fetcher:       o.Fetcher,
		fetchDisabled: o.FetchDisabled,
		maxContent:    o.MaxContentLength,
		log:           *logger.Named("resolver"),
	}
}

var _ domain.ServicePort = (*Svc)(nil)
