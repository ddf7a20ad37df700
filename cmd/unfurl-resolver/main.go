package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"unfurl/internal/adapters/web"
	"unfurl/internal/platform/config"
	"unfurl/internal/platform/logger"
	phttp "unfurl/internal/platform/net/http"
	"unfurl/internal/services/resolver/module"
	"unfurl/internal/services/resolver/policy"
	"unfurl/internal/services/resolver/service"
)

func main() {
	set, err := config.Load(os.Args[1:])
	if err != nil {
		// logging is not up yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger.Init(logger.Options{
		Level:    set.LogLevel,
		Format:   set.LogFormat,
		Service:  "unfurl",
		FilePath: set.LogPath,
		Rotate:   set.LogRotate,
	})
	l := logger.Get()

	pol := policy.Load(set.WhitelistPath, set.ShortlistPath)

	webOpts := web.Options{
		Timeout:      set.Timeout(),
		MaxRedirects: set.MaxRedirects,
		MaxBody:      set.MaxContentLength,
	}
	svc := service.New(service.Options{
		Policy:           pol,
		Prober:           web.NewProbe(webOpts),
		Fetcher:          web.NewFetcher(webOpts),
		FetchDisabled:    set.FetchDisabled,
		MaxContentLength: set.MaxContentLength,
	})

	srv := phttp.NewServer(set.Addr())
	module.Mount(srv.Router(), module.Options{
		Svc:         svc,
		CORS:        set.CORS,
		SlowRequest: set.InboundTimeout() / 2,
	})

	ln, err := srv.Listen()
	if err != nil {
		l.Panic().Err(err).Str("addr", set.Addr()).Msg("listen failed")
	}

	pool := phttp.NewPool(srv.Handler(), ln, phttp.PoolOptions{
		Size:         set.Workers,
		WriteTimeout: set.InboundTimeout(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-pool.Ready()
		l.Info().
			Str("addr", set.Addr()).
			Int("workers", set.Workers).
			Bool("fetch_disabled", set.FetchDisabled).
			Msg("resolver ready")
	}()

	if err := pool.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("worker pool stopped")
	}
}
