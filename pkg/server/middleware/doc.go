// Package middleware provides the HTTP middleware of the sketch server.
//
// The chain, outermost first, is Recovery, RequestID, Logging and
// BodyLimit. RequestID stores the id in the context through
// logging.WithRequestID so every record logged with the request context
// carries it.
package middleware
