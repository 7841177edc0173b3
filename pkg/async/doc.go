// Package async provides panic-safe goroutine helpers for fire-and-forget
// work hanging off the request path.
package async
