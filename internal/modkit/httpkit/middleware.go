package httpkit

import (
	"net/http"
	"time"

	"vidbrief/internal/platform/config"
	"vidbrief/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	// CORSOrigins defaults to middleware.DefaultOrigin
	CORSOrigins []string
	// RequestTimeout bounds a request end to end, 0 disables it.
	// Summaries wait on provider jobs so keep this above the poll timeout
	RequestTimeout time.Duration
	// SlowLog marks access log lines at warn
	SlowLog time.Duration
}

// StackFromConfig reads CORS_ORIGINS, REQUEST_TIMEOUT and SLOW_LOG from cfg
func StackFromConfig(cfg config.Conf) StackOptions {
	return StackOptions{
		CORSOrigins:    cfg.MayCSV("CORS_ORIGINS", nil),
		RequestTimeout: cfg.MayDuration("REQUEST_TIMEOUT", 35*time.Minute),
		SlowLog:        cfg.MayDuration("SLOW_LOG", 5*time.Minute),
	}
}

// CommonStack returns the baseline middleware slice for API routers
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}),
		middleware.Heartbeat("/health"),
	}
	mws = append(mws, middleware.Defaults(o.RequestTimeout)...)
	return append(mws, middleware.AccessLogZerolog(middleware.AccessLogOptions{
		Slow:  o.SlowLog,
		Quiet: []string{"/api/v1/meta/health", "/api/v1/meta/ready"},
	}))
}
