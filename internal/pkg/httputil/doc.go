// Package httputil writes JSON responses and the {"error", "code"} envelope
// used by every handler. Engine errors carry an apperr.Kind which picks the
// status code; anything without a kind is logged and returned as a bare 500.
package httputil
