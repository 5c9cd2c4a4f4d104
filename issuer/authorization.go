package issuer

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"golang.org/x/crypto/sha3"
)

// DefaultDurationDays is the validity window length clients request when none
// is specified.
const DefaultDurationDays = 10

// AuthorizationDigest computes the canonical digest a decrypt authorization
// signature must cover: the keccak-256 of the requested handles, the vault
// contract address, and the validity window, in that order. Both the signer
// and the issuer derive it independently; any mismatch in handles, contract
// or window invalidates the signature.
func AuthorizationDigest(handles []interfaces.PasswordHandle, contract common.Address, startTimestamp int64, durationDays uint64) common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	for _, handle := range handles {
		hasher.Write(handle.Bytes())
	}
	hasher.Write(contract.Bytes())

	var window [16]byte
	binary.BigEndian.PutUint64(window[:8], uint64(startTimestamp))
	binary.BigEndian.PutUint64(window[8:], durationDays)
	hasher.Write(window[:])

	return common.BytesToHash(hasher.Sum(nil))
}

// SignDecryptAuthorization produces a DecryptAuthorization for the given
// handles, signed with the requester's key over the EIP-191 personal-sign
// hash of the canonical digest.
func SignDecryptAuthorization(key *ecdsa.PrivateKey, handles []interfaces.PasswordHandle, contract common.Address, startTimestamp int64, durationDays uint64) (interfaces.DecryptAuthorization, error) {
	digest := AuthorizationDigest(handles, contract, startTimestamp, durationDays)

	signature, err := crypto.Sign(accounts.TextHash(digest.Bytes()), key)
	if err != nil {
		return interfaces.DecryptAuthorization{}, fmt.Errorf("failed to sign authorization: %w", err)
	}

	return interfaces.DecryptAuthorization{
		Requester:      crypto.PubkeyToAddress(key.PublicKey),
		Signature:      signature,
		StartTimestamp: startTimestamp,
		DurationDays:   durationDays,
	}, nil
}

// RecoverAuthorizationSigner recovers the address that signed a decrypt
// authorization over the given handles. Accepts both raw (0/1) and Ethereum
// tooling (27/28) recovery identifiers.
func RecoverAuthorizationSigner(handles []interfaces.PasswordHandle, contract common.Address, auth interfaces.DecryptAuthorization) (common.Address, error) {
	if len(auth.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(auth.Signature))
	}

	signature := make([]byte, crypto.SignatureLength)
	copy(signature, auth.Signature)
	if signature[crypto.RecoveryIDOffset] >= 27 {
		signature[crypto.RecoveryIDOffset] -= 27
	}

	digest := AuthorizationDigest(handles, contract, auth.StartTimestamp, auth.DurationDays)
	pubkey, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}
