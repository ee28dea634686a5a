// Package registry provides a generic concurrency-safe key/value store.
//
// Its main consumer is the active-run table in package stream (run ID ->
// run handle), which registers rarely and looks up often; that access
// pattern is why reads take only an RLock.
package registry
