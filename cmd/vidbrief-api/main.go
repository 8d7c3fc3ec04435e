// @title         vidbrief API
// @version       0.1.0
// @description   Summaries and brand analyses of online videos

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidbrief/internal/modkit/repokit"
	"vidbrief/internal/platform/config"
	"vidbrief/internal/platform/logger"
	phttp "vidbrief/internal/platform/net/http"
	"vidbrief/internal/platform/store"

	"vidbrief/internal/services/api"
)

func main() {
	config.LoadDotEnv()

	// service-scoped config for HTTP etc (VIDBRIEF_API_*)
	root := config.New()
	apiCfg := root.Prefix("VIDBRIEF_API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// postgres and clickhouse are optional; an unset DBURL leaves the backend nil
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "vidbrief", "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	// http server (reads VIDBRIEF_API_PORT)
	srv := phttp.NewServer(apiCfg)

	app := api.Mount(srv.Router(), api.Options{
		Root:          root,
		Config:        apiCfg,
		Store:         st,
		Logger:        l,
		EnableSwagger: apiCfg.MayBool("SWAGGER", true),
	})
	if err := app.Start(ctx); err != nil {
		l.Panic().Err(err).Msg("media module start failed")
	}

	if err := srv.Run(ctx, apiCfg.MayDuration("SHUTDOWN_GRACE", 30*time.Second)); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
