package interfaces

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PasswordToken is the one-time random 20-byte value shared between the
// confidential issuance layer and the local symmetric cipher. It is
// address-shaped on purpose: the confidential layer encrypts it as an address,
// and the cipher derives its key from the canonical big-endian 20-byte form.
type PasswordToken [20]byte

// NewRandomPasswordToken generates a fresh token from the system entropy
// source. Entropy failure is reported as ErrEncryptionFailure since a store
// cannot proceed without a token.
func NewRandomPasswordToken() (PasswordToken, error) {
	var token PasswordToken
	if _, err := rand.Read(token[:]); err != nil {
		return PasswordToken{}, fmt.Errorf("%w: %v", ErrEncryptionFailure, err)
	}
	return token, nil
}

// NewPasswordTokenFromBytes creates a token from exactly 20 bytes.
func NewPasswordTokenFromBytes(data []byte) (PasswordToken, error) {
	if len(data) != 20 {
		return PasswordToken{}, errors.New("invalid token length: must be 20 bytes")
	}

	var token PasswordToken
	copy(token[:], data)
	return token, nil
}

// NewPasswordTokenFromHex parses a token from a hex string with or without
// the 0x prefix. Shorter values are left-padded with zeros, matching the
// canonical big-endian representation the confidential layer decrypts to.
func NewPasswordTokenFromHex(value string) (PasswordToken, error) {
	clean := strings.TrimPrefix(value, "0x")
	if len(clean) > 40 {
		return PasswordToken{}, errors.New("invalid token length: hex string longer than 40 characters")
	}
	clean = strings.Repeat("0", 40-len(clean)) + clean

	tokenBytes, err := hex.DecodeString(clean)
	if err != nil {
		return PasswordToken{}, fmt.Errorf("invalid hex format: %w", err)
	}
	return NewPasswordTokenFromBytes(tokenBytes)
}

// String returns the 0x-prefixed hex representation.
func (t PasswordToken) String() string {
	return "0x" + hex.EncodeToString(t[:])
}

// Bytes returns the canonical big-endian 20-byte representation.
func (t PasswordToken) Bytes() []byte {
	return t[:]
}

// Address returns the token in address form, as seen by the issuance layer.
func (t PasswordToken) Address() common.Address {
	return common.Address(t)
}

// PasswordHandle is the opaque 32-byte on-ledger representation of a
// confidentially encrypted token. It is decryptable only through the issuer's
// authorization protocol.
type PasswordHandle [32]byte

// NewPasswordHandleFromBytes creates a handle from exactly 32 bytes.
func NewPasswordHandleFromBytes(data []byte) (PasswordHandle, error) {
	if len(data) != 32 {
		return PasswordHandle{}, errors.New("invalid handle length: must be 32 bytes")
	}

	var handle PasswordHandle
	copy(handle[:], data)
	return handle, nil
}

// NewPasswordHandleFromHex parses a handle from a 64-character hex string,
// with or without the 0x prefix.
func NewPasswordHandleFromHex(value string) (PasswordHandle, error) {
	clean := strings.TrimPrefix(value, "0x")
	if len(clean) != 64 {
		return PasswordHandle{}, errors.New("invalid handle length: hex string must be 64 characters")
	}

	handleBytes, err := hex.DecodeString(clean)
	if err != nil {
		return PasswordHandle{}, fmt.Errorf("invalid hex format: %w", err)
	}
	return NewPasswordHandleFromBytes(handleBytes)
}

// String returns the 0x-prefixed hex representation.
func (h PasswordHandle) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Bytes returns the raw 32-byte handle.
func (h PasswordHandle) Bytes() []byte {
	return h[:]
}

// Equal compares two handles.
func (h PasswordHandle) Equal(other PasswordHandle) bool {
	return bytes.Equal(h[:], other[:])
}

// MarshalText implements encoding.TextMarshaler, rendering the handle as
// 0x-prefixed hex on the wire.
func (h PasswordHandle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *PasswordHandle) UnmarshalText(text []byte) error {
	parsed, err := NewPasswordHandleFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// SecretRecord is one stored secret. All fields are immutable once appended.
// The field order matches the record shape on the wire: ciphertext, iv,
// passwordHandle, createdAt, label. Owner and index are addressing envelope,
// not part of the stored record itself.
type SecretRecord struct {
	Ciphertext     hexutil.Bytes  `json:"ciphertext"`
	IV             hexutil.Bytes  `json:"iv"`
	PasswordHandle PasswordHandle `json:"passwordHandle"`
	CreatedAt      int64          `json:"createdAt"`
	Label          string         `json:"label"`
}

// SecretStoredEvent is emitted once per successful append, for off-chain
// indexers building list views. It is not required for correctness of Get.
type SecretStoredEvent struct {
	Owner common.Address `json:"owner"`
	Index uint64         `json:"index"`
	Label string         `json:"label"`
}

// EncryptedTokenInput carries a token already confidentially encrypted
// client-side for the vault and its submitter, plus the proof that the
// ciphertext is well formed and bound to that pair.
type EncryptedTokenInput struct {
	Handle PasswordHandle `json:"handle"`
	Proof  hexutil.Bytes  `json:"proof"`
}

// DecryptAuthorization is a time-boxed signed grant permitting the issuer to
// reveal a token to the requester. The signature covers a canonical message
// naming the handle, the vault contract and the validity window.
type DecryptAuthorization struct {
	Requester      common.Address `json:"requester"`
	Signature      hexutil.Bytes  `json:"signature"`
	StartTimestamp int64          `json:"startTimestamp"`
	DurationDays   uint64         `json:"durationDays"`
}

// Covers reports whether now falls inside the authorization window.
func (a DecryptAuthorization) Covers(now int64) bool {
	if now < a.StartTimestamp {
		return false
	}
	return now <= a.StartTimestamp+int64(a.DurationDays)*86400
}
