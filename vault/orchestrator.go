package vault

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/cryptoutils"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// TokenEncryptor is the client-side half of the confidential password
// issuer: it encrypts a plaintext token for the vault and a submitter,
// producing the handle and proof that Issue validates.
type TokenEncryptor interface {
	EncryptTokenFor(token interfaces.PasswordToken, submitter common.Address) (interfaces.EncryptedTokenInput, error)
}

// StoreInput is everything a store operation needs from the caller's
// environment: the freshly minted token, its confidential encryption, and
// the message to protect. The token in here must never outlive the call.
type StoreInput struct {
	Token     interfaces.PasswordToken
	Encrypted interfaces.EncryptedTokenInput
	Message   []byte
	Label     string
}

// PrepareStore runs the client-side part of a store: it mints a random
// token and encrypts it confidentially for the vault and the owner. A failed
// store must not reuse the input; mint a fresh one instead.
func PrepareStore(encryptor TokenEncryptor, owner common.Address, message []byte, label string) (StoreInput, error) {
	token, err := interfaces.NewRandomPasswordToken()
	if err != nil {
		return StoreInput{}, err
	}

	encrypted, err := encryptor.EncryptTokenFor(token, owner)
	if err != nil {
		return StoreInput{}, fmt.Errorf("failed to encrypt token: %w", err)
	}

	return StoreInput{Token: token, Encrypted: encrypted, Message: message, Label: label}, nil
}

// ListEntry is one record of an owner's list view, with the display label the
// original record may lack.
type ListEntry struct {
	Index        uint64                  `json:"index"`
	Record       interfaces.SecretRecord `json:"record"`
	DisplayLabel string                  `json:"displayLabel"`
}

// DisplayLabel returns the stored label, or the synthesized default for
// records stored without one. The default is never persisted.
func DisplayLabel(label string, index uint64) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("Secret #%d", index+1)
}

// Vault orchestrates stores and reads across the issuer, the cipher and the
// ledger. It adds no recovery logic of its own: every component failure is
// propagated verbatim and stops the pipeline early.
type Vault struct {
	ledger interfaces.SecretLedger
	issuer interfaces.PasswordIssuer
	log    *slog.Logger
}

// New creates a vault orchestrator.
func New(ledger interfaces.SecretLedger, issuer interfaces.PasswordIssuer, log *slog.Logger) *Vault {
	return &Vault{ledger: ledger, issuer: issuer, log: log}
}

// Store runs the write pipeline: issue the confidentially encrypted token,
// encrypt the message under the same token, then append. The append is the
// last step, so a failing issue or cipher step never leaves a partial
// record. Returns the assigned index.
func (v *Vault) Store(ctx context.Context, owner common.Address, input StoreInput) (uint64, error) {
	handle, err := v.issuer.Issue(ctx, input.Encrypted, owner)
	if err != nil {
		v.log.Warn("Token issuance rejected", "err", err, slog.String("owner", owner.Hex()))
		return 0, err
	}

	ciphertext, iv, err := cryptoutils.EncryptSecret(input.Message, input.Token)
	if err != nil {
		v.log.Error("Message encryption failed", "err", err, slog.String("owner", owner.Hex()))
		return 0, err
	}

	index, err := v.ledger.Append(ctx, owner, ciphertext, iv, handle, input.Label)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// SealedInput is a store whose message was already encrypted in the caller's
// environment: the ledger side of the pipeline only ever sees ciphertext,
// the IV and the confidentially encrypted token.
type SealedInput struct {
	Encrypted  interfaces.EncryptedTokenInput
	Ciphertext []byte
	IV         []byte
	Label      string
}

// StoreSealed validates the token issuance and appends the pre-encrypted
// record. This is the write path exposed over the network; the plaintext
// message and the token never reach it.
func (v *Vault) StoreSealed(ctx context.Context, owner common.Address, sealed SealedInput) (uint64, error) {
	handle, err := v.issuer.Issue(ctx, sealed.Encrypted, owner)
	if err != nil {
		v.log.Warn("Token issuance rejected", "err", err, slog.String("owner", owner.Hex()))
		return 0, err
	}
	return v.ledger.Append(ctx, owner, sealed.Ciphertext, sealed.IV, handle, sealed.Label)
}

// Read runs the read pipeline: fetch the record, authorize the token's
// decryption with the issuer, then decrypt the message. Only the record's
// owner is ever the intended recipient of its handle, so only the owner's
// signature can succeed.
func (v *Vault) Read(ctx context.Context, owner common.Address, index uint64, auth interfaces.DecryptAuthorization) ([]byte, error) {
	record, err := v.ledger.Get(ctx, owner, index)
	if err != nil {
		return nil, err
	}

	token, err := v.issuer.AuthorizeDecrypt(ctx, record.PasswordHandle, auth)
	if err != nil {
		v.log.Warn("Decrypt authorization rejected", "err", err,
			slog.String("owner", owner.Hex()),
			slog.Uint64("index", index))
		return nil, err
	}

	message, err := cryptoutils.DecryptSecret(record.Ciphertext, record.IV, token)
	if err != nil {
		// The authorized token does not open the stored ciphertext: data
		// corruption or a cross-domain mismatch introduced outside the
		// ledger's write path.
		v.log.Error("Stored ciphertext failed authentication", "err", err,
			slog.String("owner", owner.Hex()),
			slog.Uint64("index", index))
		return nil, err
	}
	return message, nil
}

// List returns the owner's records with display labels, index order.
func (v *Vault) List(ctx context.Context, owner common.Address) ([]ListEntry, error) {
	count, err := v.ledger.Count(ctx, owner)
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, 0, count)
	for index := uint64(0); index < count; index++ {
		record, err := v.ledger.Get(ctx, owner, index)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ListEntry{
			Index:        index,
			Record:       record,
			DisplayLabel: DisplayLabel(record.Label, index),
		})
	}
	return entries, nil
}

// Count returns the number of records stored for owner.
func (v *Vault) Count(ctx context.Context, owner common.Address) (uint64, error) {
	return v.ledger.Count(ctx, owner)
}

// Get returns one raw record. Reads of ciphertext and handles are open to
// anyone; only Read is access-controlled.
func (v *Vault) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	return v.ledger.Get(ctx, owner, index)
}
