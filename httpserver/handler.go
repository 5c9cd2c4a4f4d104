package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/ruteri/encrypted-secrets-vault/metrics"
	"github.com/ruteri/encrypted-secrets-vault/vault"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// StoreRequest is the body of a sealed store: the record fields the caller's
// environment produced, with byte fields as 0x-prefixed hex.
type StoreRequest struct {
	Handle     interfaces.PasswordHandle `json:"handle"`
	Proof      hexutil.Bytes             `json:"proof"`
	Ciphertext hexutil.Bytes             `json:"ciphertext"`
	IV         hexutil.Bytes             `json:"iv"`
	Label      string                    `json:"label"`
}

// StoreResponse carries the index assigned to the new record.
type StoreResponse struct {
	Index uint64 `json:"index"`
}

// CountResponse carries an owner's record count.
type CountResponse struct {
	Count uint64 `json:"count"`
}

// ReadResponse carries a decrypted message and the display label.
type ReadResponse struct {
	Message      string `json:"message"`
	DisplayLabel string `json:"displayLabel"`
}

// EncryptTokenRequest asks the issuer relay to confidentially encrypt a
// token for a submitter. This stands in for the caller's channel to the
// confidential-compute network; transport security is assumed provided by
// the surrounding network layer.
type EncryptTokenRequest struct {
	Token     string         `json:"token"`
	Submitter common.Address `json:"submitter"`
}

// Handler processes HTTP requests for the vault service.
type Handler struct {
	vault     *vault.Vault
	encryptor vault.TokenEncryptor
	log       *slog.Logger
}

// NewHandler creates a new HTTP request handler. The encryptor may be nil
// when the deployment does not relay client-side token encryption.
func NewHandler(v *vault.Vault, encryptor vault.TokenEncryptor, log *slog.Logger) *Handler {
	return &Handler{vault: v, encryptor: encryptor, log: log}
}

// HandleStore processes sealed store requests.
//
// URL format: POST /api/vault/{owner}/secrets
func (h *Handler) HandleStore(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}

	var req StoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	index, err := h.vault.StoreSealed(r.Context(), owner, vault.SealedInput{
		Encrypted:  interfaces.EncryptedTokenInput{Handle: req.Handle, Proof: req.Proof},
		Ciphertext: req.Ciphertext,
		IV:         req.IV,
		Label:      req.Label,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	metrics.SecretsStored.Inc()
	h.writeJSON(w, StoreResponse{Index: index})
}

// HandleCount returns the number of records stored for an owner.
//
// URL format: GET /api/vault/{owner}/secrets/count
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}

	count, err := h.vault.Count(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, CountResponse{Count: count})
}

// HandleGet returns one raw record. Open to anyone: confidentiality comes
// from encryption, not from read access control.
//
// URL format: GET /api/vault/{owner}/secrets/{index}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}
	index, ok := h.parseIndex(w, r)
	if !ok {
		return
	}

	record, err := h.vault.Get(r.Context(), owner, index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, record)
}

// HandleList returns all of an owner's records with display labels.
//
// URL format: GET /api/vault/{owner}/secrets
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}

	entries, err := h.vault.List(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, entries)
}

// HandleRead processes authorized decrypt requests. The body is the signed
// decrypt authorization; plaintext is released only when the issuer accepts
// it.
//
// URL format: POST /api/vault/{owner}/secrets/{index}/read
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}
	index, ok := h.parseIndex(w, r)
	if !ok {
		return
	}

	var auth interfaces.DecryptAuthorization
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&auth); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	message, err := h.vault.Read(r.Context(), owner, index, auth)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, err := h.vault.Get(r.Context(), owner, index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	metrics.SecretsRead.Inc()
	h.writeJSON(w, ReadResponse{
		Message:      string(message),
		DisplayLabel: vault.DisplayLabel(record.Label, index),
	})
}

// HandleEncryptToken relays client-side confidential token encryption to
// the issuer. Only available when the deployment runs a token encryptor.
//
// URL format: POST /api/issuer/token
func (h *Handler) HandleEncryptToken(w http.ResponseWriter, r *http.Request) {
	if h.encryptor == nil {
		http.Error(w, "Token encryption relay not available", http.StatusNotImplemented)
		return
	}

	var req EncryptTokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := interfaces.NewPasswordTokenFromHex(req.Token)
	if err != nil {
		http.Error(w, "Invalid token format", http.StatusBadRequest)
		return
	}

	input, err := h.encryptor.EncryptTokenFor(token, req.Submitter)
	if err != nil {
		h.log.Error("Token encryption failed", "err", err)
		http.Error(w, "Token encryption failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, input)
}

func (h *Handler) parseOwner(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	ownerHex := r.PathValue("owner")
	if !common.IsHexAddress(ownerHex) {
		http.Error(w, "Invalid owner address format", http.StatusBadRequest)
		return common.Address{}, false
	}
	return common.HexToAddress(ownerHex), true
}

func (h *Handler) parseIndex(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid secret index format", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, interfaces.ErrIndexOutOfRange):
		status, kind = http.StatusNotFound, "index_out_of_range"
	case errors.Is(err, interfaces.ErrInvalidProof):
		status, kind = http.StatusBadRequest, "invalid_proof"
	case errors.Is(err, interfaces.ErrUnauthorized):
		status, kind = http.StatusForbidden, "unauthorized"
	case errors.Is(err, interfaces.ErrAuthenticationFailure):
		status, kind = http.StatusInternalServerError, "authentication_failure"
	case errors.Is(err, interfaces.ErrEncryptionFailure):
		status, kind = http.StatusInternalServerError, "encryption_failure"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}

	metrics.OperationErrors.WithLabelValues(kind).Inc()
	h.log.Warn("Request failed", "err", err,
		slog.String("path", r.URL.Path),
		slog.Int("status", status))
	http.Error(w, err.Error(), status)
}
