package issuer

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"golang.org/x/crypto/sha3"
)

// SimulatedIssuer is an in-process confidential password issuer for
// development and testing. It reproduces the issuer contract faithfully —
// proof-bound issuance, recipient-only authorization, validity windows —
// while holding the "confidentially encrypted" tokens in memory instead of a
// confidential-compute network.
type SimulatedIssuer struct {
	contract common.Address
	now      func() int64

	mu      sync.RWMutex
	pending map[interfaces.PasswordHandle]pendingToken
	issued  map[interfaces.PasswordHandle]issuedToken
}

type pendingToken struct {
	token     interfaces.PasswordToken
	submitter common.Address
	proof     [32]byte
}

type issuedToken struct {
	token     interfaces.PasswordToken
	recipient common.Address
}

// NewSimulatedIssuer creates a simulated issuer bound to the vault's contract
// identity. Handles issued for one contract never authorize against another.
func NewSimulatedIssuer(contract common.Address) *SimulatedIssuer {
	return &SimulatedIssuer{
		contract: contract,
		now:      func() int64 { return time.Now().Unix() },
		pending:  make(map[interfaces.PasswordHandle]pendingToken),
		issued:   make(map[interfaces.PasswordHandle]issuedToken),
	}
}

// WithClock returns the issuer with a custom time source, used by tests to
// exercise validity window expiry.
func (s *SimulatedIssuer) WithClock(now func() int64) *SimulatedIssuer {
	s.now = now
	return s
}

// EncryptTokenFor performs the client-side confidential encryption of a
// token for this issuer's contract and a submitter. The returned handle is a
// keccak commitment over a fresh salt, the token, the contract and the
// submitter; the proof binds the handle to that (contract, submitter) pair.
// In production this runs inside the caller's environment against the real
// confidential-compute network.
func (s *SimulatedIssuer) EncryptTokenFor(token interfaces.PasswordToken, submitter common.Address) (interfaces.EncryptedTokenInput, error) {
	var salt [32]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return interfaces.EncryptedTokenInput{}, fmt.Errorf("failed to generate handle salt: %w", err)
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(salt[:])
	hasher.Write(token.Bytes())
	hasher.Write(s.contract.Bytes())
	hasher.Write(submitter.Bytes())

	handle, err := interfaces.NewPasswordHandleFromBytes(hasher.Sum(nil))
	if err != nil {
		return interfaces.EncryptedTokenInput{}, err
	}
	proof := s.proofFor(handle, submitter)

	s.mu.Lock()
	s.pending[handle] = pendingToken{token: token, submitter: submitter, proof: proof}
	s.mu.Unlock()

	return interfaces.EncryptedTokenInput{Handle: handle, Proof: proof[:]}, nil
}

// Issue validates the proof binding of an encrypted token input and makes the
// handle usable in storage, with the submitter as its only intended
// recipient. Issuing the same input twice yields the same handle.
func (s *SimulatedIssuer) Issue(_ context.Context, input interfaces.EncryptedTokenInput, submitter common.Address) (interfaces.PasswordHandle, error) {
	expectedProof := s.proofFor(input.Handle, submitter)
	if len(input.Proof) != len(expectedProof) || [32]byte(input.Proof) != expectedProof {
		return interfaces.PasswordHandle{}, fmt.Errorf("%w: proof does not match handle binding", interfaces.ErrInvalidProof)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.issued[input.Handle]; ok {
		if existing.recipient != submitter {
			return interfaces.PasswordHandle{}, fmt.Errorf("%w: handle issued for a different submitter", interfaces.ErrInvalidProof)
		}
		return input.Handle, nil
	}

	entry, ok := s.pending[input.Handle]
	if !ok || entry.submitter != submitter || entry.proof != expectedProof {
		return interfaces.PasswordHandle{}, fmt.Errorf("%w: unknown ciphertext for handle", interfaces.ErrInvalidProof)
	}

	delete(s.pending, input.Handle)
	s.issued[input.Handle] = issuedToken{token: entry.token, recipient: submitter}
	return input.Handle, nil
}

// AuthorizeDecrypt reveals the token behind handle if the authorization
// signature is valid, in-window, and made by the handle's intended recipient.
// All failure modes collapse into ErrUnauthorized: the issuer never explains
// which check failed, and never reveals anything on failure.
func (s *SimulatedIssuer) AuthorizeDecrypt(_ context.Context, handle interfaces.PasswordHandle, auth interfaces.DecryptAuthorization) (interfaces.PasswordToken, error) {
	s.mu.RLock()
	entry, ok := s.issued[handle]
	s.mu.RUnlock()
	if !ok {
		return interfaces.PasswordToken{}, fmt.Errorf("%w: unknown handle", interfaces.ErrUnauthorized)
	}

	if !auth.Covers(s.now()) {
		return interfaces.PasswordToken{}, fmt.Errorf("%w: authorization window expired", interfaces.ErrUnauthorized)
	}

	signer, err := RecoverAuthorizationSigner([]interfaces.PasswordHandle{handle}, s.contract, auth)
	if err != nil {
		return interfaces.PasswordToken{}, fmt.Errorf("%w: %v", interfaces.ErrUnauthorized, err)
	}

	if signer != auth.Requester || signer != entry.recipient {
		return interfaces.PasswordToken{}, fmt.Errorf("%w: requester is not the intended recipient", interfaces.ErrUnauthorized)
	}

	return entry.token, nil
}

func (s *SimulatedIssuer) proofFor(handle interfaces.PasswordHandle, submitter common.Address) [32]byte {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(handle.Bytes())
	hasher.Write(s.contract.Bytes())
	hasher.Write(submitter.Bytes())

	var proof [32]byte
	copy(proof[:], hasher.Sum(nil))
	return proof
}
