// Package middleware provides Gin middleware shared across the HTTP
// surface: CORS for the UI webview and a global rate limiter.
package middleware
