// Package issuer integrates the vault with the confidential password issuer,
// the external capability that keeps password tokens encrypted end-to-end.
//
// The issuer's own cryptography (homomorphic encryption, threshold and user
// decryption) is not implemented here. The package provides the client-side
// glue: building confidentially encrypted token inputs, signing time-boxed
// decrypt authorizations, and verifying them. SimulatedIssuer implements the
// full issuer contract in-process for development and tests, the same way a
// mocked coprocessor stands in for the real confidential-compute network.
package issuer
