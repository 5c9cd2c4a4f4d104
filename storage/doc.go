// Package storage provides record store implementations for the secret
// ledger. A record store persists (owner, index) -> record rows; the ledger
// above it owns indexing, ordering and event emission, so stores stay dumb
// and interchangeable.
//
// Supported backends, created from URIs by RecordStoreFactory:
//
//   - mem://                                   - in-memory, for tests and development
//   - file:///var/lib/vault                    - local filesystem
//   - s3://bucket/prefix?region=us-east-1      - Amazon S3 or compatible
//   - vault://host:8200/secret/records?token=t - HashiCorp Vault KV v2
//
// Stores only ever see ciphertext, IVs and opaque password handles; plaintext
// never reaches this layer.
package storage
