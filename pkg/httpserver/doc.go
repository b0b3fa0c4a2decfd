// Package httpserver runs the service's HTTP listener with graceful shutdown
// and provides liveness and readiness probe handlers.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server failed", logger.Error(err))
//	}
//
// Run returns once ctx is cancelled and in-flight requests finished or
// HTTP_SHUTDOWN_TIMEOUT elapsed.
package httpserver
