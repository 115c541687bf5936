// Package server provides HTTP routing, middleware, and the JSON and event-stream handlers of the web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally, so routes are "METHOD /path/{wildcard}" patterns.
//
// # Middleware
//
// [RequestLogger] logs method, path, status and duration. [Recoverer] turns handler panics into a 500 JSON error.
// [CORS] answers preflight requests. [RateLimiter] keeps one token bucket per client address and is applied
// only to the routes that start downloads.
//
// # API
//
// [API] registers the JSON routes over a [JobRegistry], a [Library] and the optional history, playlist and
// artwork collaborators. Errors are written as {"error": message}, with the status chosen from the wrapped
// sentinel in internal/shared.
//
// # Progress Streams
//
// [ProgressHandler] subscribes an observer to one job and writes each event as a "data:" frame.
// The observer only queues events, so a slow client never holds up the job's other subscribers.
// The stream ends after the job's complete or error event, or when the client disconnects.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
