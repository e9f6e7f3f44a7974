// Package server runs the webhook service that starts the statistics pipeline from GitHub deliveries.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// The [BasicRouter] implementation uses [http.ServeMux] internally with per-path method tables.
//
// # Webhook Handler
//
// [WebhookHandler] serves POST /webhook. Deliveries are authenticated with the X-Hub-Signature-256 HMAC when a
// secret is configured, decoded with the trigger package and evaluated before anything runs. Matching events are
// handed to a [Dispatcher], which runs one pipeline at a time in the background; a delivery arriving while a run
// is in progress gets 409 Conflict.
//
// # Status Endpoints
//
// GET /health reports liveness and whether a run is active. GET /runs lists recent runs from the history store.
package server
