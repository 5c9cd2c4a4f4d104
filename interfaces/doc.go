// Package interfaces defines the core types and contracts of the confidential
// secret vault. It is the single place where the boundaries between the
// symmetric cipher, the confidential password issuer, the secret ledger and
// the vault orchestrator are specified, without implementation details.
package interfaces
