package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"deskchat/pkg/api"
	"deskchat/pkg/auth"
	"deskchat/pkg/banner"
	"deskchat/pkg/logger"
)

func (a *App) serveHTTP(ctx context.Context) error {
	cfg := &a.res.Config

	gw := &auth.Gateway{
		AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
		IPWhitelist:    cfg.Security.IPWhitelist,
		Limiter:        auth.NewLimiterPool(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst),
		UnauthPaths:    auth.DefaultUnauthPaths(),
	}
	handler := api.NewRouter(api.Options{
		Gateway:      gw,
		MaxBodyBytes: cfg.Security.MaxBodyBytes.Int64(),
	})

	srv := &http.Server{
		Addr:              a.res.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	banner.Print(Version, a.res.Addr, a.res.DBPath, a.res.ConfigSource)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.TLS.CertFile != "" {
			logger.Info("http_listen", "addr", a.res.Addr, "tls", true)
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			logger.Info("http_listen", "addr", a.res.Addr, "tls", false)
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logger.Info("http_shutdown")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return srv.Close()
	}
	return nil
}
