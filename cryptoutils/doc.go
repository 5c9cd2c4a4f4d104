// Package cryptoutils implements the symmetric cipher module of the vault:
// deterministic key derivation from a password token and authenticated
// encryption of secret messages with AES-256-GCM.
//
// The derived key is a plain SHA-256 digest of the token's canonical 20-byte
// big-endian representation, with no salt. Security rests entirely on the
// token's secrecy and one-time use: the token is minted randomly per store
// and recoverable only through the confidential issuer's authorization
// protocol, so a fresh token per record also guarantees nonce uniqueness
// under any given key.
package cryptoutils
