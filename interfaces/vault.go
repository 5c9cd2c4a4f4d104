package interfaces

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

var (
	// ErrIndexOutOfRange is returned by Get for an index at or beyond the
	// owner's current count. Recoverable; surfaced to the caller unchanged.
	ErrIndexOutOfRange = errors.New("secret index out of range")

	// ErrInvalidProof is returned by Issue when the issuance proof does not
	// match the claimed ciphertext/identity binding. The store does not
	// proceed and no partial record is created.
	ErrInvalidProof = errors.New("invalid token issuance proof")

	// ErrUnauthorized is returned by AuthorizeDecrypt when the signature is
	// invalid, the validity window has lapsed, or the requester is not the
	// handle's intended recipient. The read yields no plaintext.
	ErrUnauthorized = errors.New("decrypt authorization rejected")

	// ErrAuthenticationFailure indicates the symmetric decryption integrity
	// check failed: tampered data or a cross-domain token mismatch. Fatal for
	// the record; retrying with the same inputs cannot succeed.
	ErrAuthenticationFailure = errors.New("ciphertext authentication failed")

	// ErrEncryptionFailure indicates a local cipher error during store. The
	// caller should retry the whole store with a fresh token, never reusing
	// a token from a failed attempt.
	ErrEncryptionFailure = errors.New("message encryption failed")

	// ErrRecordNotFound is returned by record stores for an index that was
	// never written. The ledger translates it to ErrIndexOutOfRange.
	ErrRecordNotFound = errors.New("secret record not found")

	// ErrBackendUnavailable is returned when a record store backend is not
	// accessible: network issues, authentication failures, or outages.
	ErrBackendUnavailable = errors.New("record store unavailable")
)

// SecretLedger is the owner-scoped append-only store of secret records. It
// owns per-owner isolation and the dense 0..count-1 index invariant. Reads
// are side-effect-free and open to anyone: secrets are protected by
// encryption, not by access control on ciphertext or handles.
type SecretLedger interface {
	// Append stores a new record under owner, assigning the next dense index
	// and the ledger timestamp. It never rejects based on content.
	Append(ctx context.Context, owner common.Address, ciphertext, iv []byte, handle PasswordHandle, label string) (uint64, error)

	// Count returns the number of records stored for owner, zero for an
	// owner with no records.
	Count(ctx context.Context, owner common.Address) (uint64, error)

	// Get returns the record exactly as stored, or ErrIndexOutOfRange.
	Get(ctx context.Context, owner common.Address, index uint64) (SecretRecord, error)

	// SubscribeStored delivers one SecretStoredEvent per successful append.
	SubscribeStored(ch chan<- SecretStoredEvent) event.Subscription
}

// PasswordIssuer is the confidential-compute capability consumed by the
// orchestrator. Its internal cryptography is external to this module; the
// vault depends only on determinism of Issue and the all-or-nothing
// authorization semantics of AuthorizeDecrypt.
type PasswordIssuer interface {
	// Issue validates the proof binding of a confidentially encrypted token
	// and returns the handle usable in storage, or ErrInvalidProof.
	Issue(ctx context.Context, input EncryptedTokenInput, submitter common.Address) (PasswordHandle, error)

	// AuthorizeDecrypt reveals the plaintext token behind handle if auth
	// carries a valid in-window signature by the handle's intended recipient,
	// and fails with ErrUnauthorized otherwise.
	AuthorizeDecrypt(ctx context.Context, handle PasswordHandle, auth DecryptAuthorization) (PasswordToken, error)
}

// RecordStore is the persistence layer underneath the secret ledger. The
// ledger serializes writes and enforces dense indexing; a store only has to
// keep (owner, index) -> record durable and report how many records an owner
// has. Stores never see plaintext.
type RecordStore interface {
	// Put persists the record at (owner, index). The ledger guarantees the
	// index is fresh; overwrites indicate a ledger bug, not a store concern.
	Put(ctx context.Context, owner common.Address, index uint64, record SecretRecord) error

	// Get retrieves the record at (owner, index), or ErrRecordNotFound.
	Get(ctx context.Context, owner common.Address, index uint64) (SecretRecord, error)

	// Count returns the number of records persisted for owner.
	Count(ctx context.Context, owner common.Address) (uint64, error)

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this store.
	LocationURI() string
}
