// Package vault implements the orchestrator that ties the symmetric cipher,
// the confidential password issuer and the secret ledger into the store and
// read workflows. The password token is owned exclusively by a single store
// or read invocation: it is passed by value into each subsystem call and
// never persisted anywhere.
package vault
