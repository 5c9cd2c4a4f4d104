package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/vault/api"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// VaultStore implements a record store on HashiCorp Vault's KV v2 engine.
// Each record is one KV entry; the owner's count comes from a metadata LIST
// on the owner's path.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a new Vault record store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "vault-records")
//   - token: Vault token used for authentication
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Put persists the record as a KV v2 entry.
func (s *VaultStore) Put(ctx context.Context, owner common.Address, index uint64, record interfaces.SecretRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	vaultPath := s.recordDataPath(owner, index)
	_, err = s.client.Logical().WriteWithContext(ctx, vaultPath, map[string]interface{}{
		"data": map[string]interface{}{
			"record": base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to store record in Vault: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored record in Vault",
		slog.String("path", vaultPath),
		slog.Int("size", len(data)))
	return nil
}

// Get retrieves the record at (owner, index).
func (s *VaultStore) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	vaultPath := s.recordDataPath(owner, index)
	secret, err := s.client.Logical().ReadWithContext(ctx, vaultPath)
	if err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("%w: failed to fetch record from Vault: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return interfaces.SecretRecord{}, interfaces.ErrRecordNotFound
	}

	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return interfaces.SecretRecord{}, interfaces.ErrRecordNotFound
	}
	encoded, ok := inner["record"].(string)
	if !ok {
		return interfaces.SecretRecord{}, fmt.Errorf("unexpected record format at %s", vaultPath)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}

	var record interfaces.SecretRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

// Count lists the owner's metadata path and returns the number of entries.
func (s *VaultStore) Count(ctx context.Context, owner common.Address) (uint64, error) {
	listPath := path.Join(s.mountPath, "metadata", s.dataPath, "owners", owner.Hex())
	secret, err := s.client.Logical().ListWithContext(ctx, listPath)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to list records in Vault: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return 0, nil
	}

	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return 0, nil
	}
	return uint64(len(keys)), nil
}

// Available checks Vault health.
func (s *VaultStore) Available(ctx context.Context) bool {
	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		s.log.Debug("Vault store unavailable", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

// Name returns a unique identifier for this store.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s", s.dataPath)
}

// LocationURI returns the URI identifying this store.
func (s *VaultStore) LocationURI() string { return s.locationURI }

func (s *VaultStore) recordDataPath(owner common.Address, index uint64) string {
	return path.Join(s.mountPath, "data", s.dataPath, "owners", owner.Hex(), fmt.Sprintf("%012d", index))
}
