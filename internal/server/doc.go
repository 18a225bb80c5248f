// Package server hosts the Fiber HTTP service and its middleware chain:
// request IDs, access logging, request metrics and the JSON error envelope.
// Handlers live in the routes subpackage and receive their dependencies
// explicitly, so keep exports narrow.
package server
