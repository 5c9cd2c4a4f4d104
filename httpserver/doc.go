// Package httpserver exposes the secret vault over HTTP: the open ledger
// boundary (count, get, list), the sealed store path, the signature-gated
// read path, and the usual liveness, readiness and drain endpoints.
package httpserver
