package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// RecordStoreFactory creates record stores from URI strings.
type RecordStoreFactory struct {
	log *slog.Logger
}

// NewRecordStoreFactory creates a new factory instance.
func NewRecordStoreFactory(log *slog.Logger) *RecordStoreFactory {
	return &RecordStoreFactory{log: log}
}

// RecordStoreFor creates a record store from a location URI.
//
// Supported schemes:
//   - mem:// - in-memory storage
//   - file:// - local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 storage
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *RecordStoreFactory) RecordStoreFor(locationURI string) (interfaces.RecordStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid record store URI: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mem":
		return NewMemoryStore(), nil
	case "file":
		return f.createFileStore(u)
	case "s3":
		return f.createS3Store(u)
	case "vault":
		return f.createVaultStore(u)
	default:
		return nil, fmt.Errorf("unsupported record store scheme: %s", u.Scheme)
	}
}

// createFileStore creates a filesystem store.
// URI format: file:///var/lib/encrypted-secrets
func (f *RecordStoreFactory) createFileStore(u *url.URL) (interfaces.RecordStore, error) {
	f.log.Debug("Creating file record store", slog.String("uri", u.String()))

	basePath := u.Path
	if u.Host != "" {
		basePath = u.Host + u.Path
	}
	if basePath == "" {
		return nil, fmt.Errorf("file store requires a path")
	}

	return NewFileStore(basePath, f.log)
}

// createS3Store creates an S3 store.
// URI format: s3://bucket/prefix?region=us-east-1&endpoint=...&access_key=...&secret_key=...
func (f *RecordStoreFactory) createS3Store(u *url.URL) (interfaces.RecordStore, error) {
	f.log.Debug("Creating S3 record store", slog.String("bucket", u.Host))

	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("S3 store requires a bucket name")
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	prefix := strings.TrimPrefix(u.Path, "/")
	return NewS3Store(bucketName, prefix, region, query.Get("endpoint"), query.Get("access_key"), query.Get("secret_key"), f.log)
}

// createVaultStore creates a HashiCorp Vault store.
// URI format: vault://host:8200/mount/data-path?token=...&scheme=https
func (f *RecordStoreFactory) createVaultStore(u *url.URL) (interfaces.RecordStore, error) {
	f.log.Debug("Creating Vault record store", slog.String("host", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("vault store requires a host")
	}

	pathParts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return nil, fmt.Errorf("vault store URI must include mount and data path")
	}

	query := u.Query()
	scheme := query.Get("scheme")
	if scheme == "" {
		scheme = "https"
	}

	address := fmt.Sprintf("%s://%s", scheme, u.Host)
	return NewVaultStore(address, pathParts[0], pathParts[1], query.Get("token"), f.log)
}
