// Package server runs the optional status HTTP server for the lifetime of
// a context.
//
// It wraps [net/http.Server], drains in-flight requests on shutdown, and
// runs registered cleanup hooks in order:
//
//	srv := server.New(router, server.WithHost("127.0.0.1:9100"))
//	go func() {
//		if err := srv.Run(ctx); err != nil {
//			logger.Error("status server", "error", err)
//		}
//	}()
//
// Signal handling is left to the caller, which cancels ctx.
package server
