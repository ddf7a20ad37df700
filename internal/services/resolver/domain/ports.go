package domain

import "context"

// ServicePort is consumed by handlers
type ServicePort interface {
	Resolve(ctx context.Context, req Request) Result
}

// Prober issues a bounded HEAD and reports the effective final URL
type Prober interface {
	Head(ctx context.Context, url string) (HeadResult, error)
}

// Fetcher issues a bounded GET and extracts canonical metadata
type Fetcher interface {
	Get(ctx context.Context, url string) (Page, error)
}
