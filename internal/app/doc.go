// Package app wires the Sponsorama web service together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. The caller loads configuration and the logger (cmd/web)
//	2. OpenTelemetry providers are installed
//	3. The ingestion pipeline, session, campaign service and WebSocket hub are created
//	4. The chi router is assembled with the middleware chain and the API routes
//	5. The HTTP server is created; nothing listens until Start
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns when ctx is done. Shutdown then:
//
//	- drains in-flight requests within server.shutdown_timeout
//	- stops publishing session views and closes WebSocket clients
//	- flushes the OpenTelemetry providers
package app
