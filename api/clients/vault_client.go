package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/cryptoutils"
	"github.com/ruteri/encrypted-secrets-vault/httpserver"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/ruteri/encrypted-secrets-vault/vault"
)

// VaultClient talks to the vault server over HTTP. Store runs the full
// client-side pipeline locally: mint a token, relay its confidential
// encryption through the server, encrypt the message with the token, and
// submit only the sealed record. Plaintext never goes on the wire.
type VaultClient struct {
	// ServerAddr is the base URL of the vault server.
	ServerAddr string

	// HTTPClient is used for all requests; http.DefaultClient when nil.
	HTTPClient *http.Client
}

func (c *VaultClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// EncryptToken relays the confidential encryption of a token for owner.
func (c *VaultClient) EncryptToken(ctx context.Context, token interfaces.PasswordToken, owner common.Address) (interfaces.EncryptedTokenInput, error) {
	var encrypted interfaces.EncryptedTokenInput
	err := c.postJSON(ctx, fmt.Sprintf("%s/api/issuer/token", c.ServerAddr),
		httpserver.EncryptTokenRequest{Token: token.String(), Submitter: owner}, &encrypted)
	if err != nil {
		return interfaces.EncryptedTokenInput{}, err
	}
	return encrypted, nil
}

// Store encrypts message locally under a fresh token and submits the sealed
// record. Returns the assigned index. The token is discarded before
// returning; reads go through the authorization protocol.
func (c *VaultClient) Store(ctx context.Context, owner common.Address, message []byte, label string) (uint64, error) {
	token, err := interfaces.NewRandomPasswordToken()
	if err != nil {
		return 0, err
	}

	encrypted, err := c.EncryptToken(ctx, token, owner)
	if err != nil {
		return 0, fmt.Errorf("could not encrypt token: %w", err)
	}

	ciphertext, iv, err := cryptoutils.EncryptSecret(message, token)
	if err != nil {
		return 0, err
	}

	var stored httpserver.StoreResponse
	err = c.postJSON(ctx, fmt.Sprintf("%s/api/vault/%s/secrets", c.ServerAddr, owner.Hex()),
		httpserver.StoreRequest{
			Handle:     encrypted.Handle,
			Proof:      encrypted.Proof,
			Ciphertext: ciphertext,
			IV:         iv,
			Label:      label,
		}, &stored)
	if err != nil {
		return 0, err
	}
	return stored.Index, nil
}

// Read requests an authorized decrypt of the record at index. The caller
// signs the authorization; the server releases plaintext only when the
// issuer accepts it.
func (c *VaultClient) Read(ctx context.Context, owner common.Address, index uint64, auth interfaces.DecryptAuthorization) (*httpserver.ReadResponse, error) {
	var read httpserver.ReadResponse
	err := c.postJSON(ctx, fmt.Sprintf("%s/api/vault/%s/secrets/%d/read", c.ServerAddr, owner.Hex(), index), auth, &read)
	if err != nil {
		return nil, err
	}
	return &read, nil
}

// Count returns the number of records stored for owner.
func (c *VaultClient) Count(ctx context.Context, owner common.Address) (uint64, error) {
	var count httpserver.CountResponse
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/vault/%s/secrets/count", c.ServerAddr, owner.Hex()), &count)
	if err != nil {
		return 0, err
	}
	return count.Count, nil
}

// Get returns the raw record at index, ciphertext and handle only.
func (c *VaultClient) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	var record interfaces.SecretRecord
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/vault/%s/secrets/%d", c.ServerAddr, owner.Hex(), index), &record)
	if err != nil {
		return interfaces.SecretRecord{}, err
	}
	return record, nil
}

// List returns all of owner's records with display labels.
func (c *VaultClient) List(ctx context.Context, owner common.Address) ([]vault.ListEntry, error) {
	var entries []vault.ListEntry
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/vault/%s/secrets", c.ServerAddr, owner.Hex()), &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *VaultClient) postJSON(ctx context.Context, url string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *VaultClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *VaultClient) do(req *http.Request, out interface{}) error {
	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("could not request vault endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("vault endpoint returned non-200 response: %d", resp.StatusCode)
		}
		return fmt.Errorf("vault endpoint returned error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse vault response: %w", err)
	}
	return nil
}
