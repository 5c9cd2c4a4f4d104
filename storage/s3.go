package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// S3Store implements a record store on Amazon S3 or compatible object
// storage. Records are JSON objects keyed by owner and zero-padded index so
// that a prefix listing enumerates one owner's records in order.
type S3Store struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewS3Store creates a new S3 record store. If accessKey and secretKey are
// empty the store relies on the ambient AWS credential chain.
func NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      prefix,
		log:         log,
		locationURI: uri,
	}, nil
}

// Put persists the record as a JSON object.
func (s *S3Store) Put(ctx context.Context, owner common.Address, index uint64, record interfaces.SecretRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	key := s.recordKey(owner, index)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to store record in S3: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored record in S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)))
	return nil
}

// Get retrieves the record at (owner, index).
func (s *S3Store) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	key := s.recordKey(owner, index)
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return interfaces.SecretRecord{}, interfaces.ErrRecordNotFound
		}
		return interfaces.SecretRecord{}, fmt.Errorf("%w: failed to fetch record from S3: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("failed to read record body: %w", err)
	}

	var record interfaces.SecretRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return interfaces.SecretRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

// Count returns the number of record objects under the owner's prefix.
func (s *S3Store) Count(ctx context.Context, owner common.Address) (uint64, error) {
	var count uint64
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(s.ownerPrefix(owner)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		count += uint64(len(page.Contents))
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to list records in S3: %v", interfaces.ErrBackendUnavailable, err)
	}
	return count, nil
}

// Available checks bucket accessibility with a HEAD request.
func (s *S3Store) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		s.log.Debug("S3 store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucketName)
}

// LocationURI returns the URI identifying this store.
func (s *S3Store) LocationURI() string { return s.locationURI }

func (s *S3Store) ownerPrefix(owner common.Address) string {
	return path.Join(s.prefix, "owners", owner.Hex()) + "/"
}

func (s *S3Store) recordKey(owner common.Address, index uint64) string {
	return path.Join(s.prefix, "owners", owner.Hex(), fmt.Sprintf("%012d.json", index))
}
