// Package blobstore is the optional S3-compatible overflow store for
// code-snippet AST and document content whose inline size exceeds the
// configured threshold. Grounded on storage/s3aws.go's client construction
// (static credentials, path-style endpoint override for non-AWS S3
// providers) and storage/s3_interface.go's S3Client seam, trimmed to the
// one read/write pair this domain needs instead of the teacher's full
// multi-cloud sync surface.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"repoanalyzer.dev/config"
)

// Client is the subset of the AWS S3 SDK this package calls, letting tests
// substitute a fake instead of a real endpoint (storage/s3_interface.go's
// S3Client pattern, narrowed to PutObject/GetObject).
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store puts and fetches overflow blobs keyed by repo/file path.
type Store struct {
	client    Client
	bucket    string
	threshold int
}

// New configures an S3 client against cfg and verifies nothing beyond
// constructing the client (bucket existence is not required: PutObject
// against a missing bucket fails loudly on first write, same as the
// teacher's lakeFsUploadFile/HetznerUploadFile callers expect).
func New(ctx context.Context, cfg config.BlobStoreConfig) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("blobstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.Bucket, threshold: cfg.InlineThresholdBytes}, nil
}

// NewWithClient builds a Store around an already-configured Client, for
// tests and for callers assembling the S3 client themselves.
func NewWithClient(client Client, bucket string, threshold int) *Store {
	return &Store{client: client, bucket: bucket, threshold: threshold}
}

// ShouldOverflow reports whether content of the given size should be moved
// to blob storage instead of stored inline.
func (s *Store) ShouldOverflow(size int) bool {
	return s.threshold > 0 && size > s.threshold
}

// Key builds the overflow object key for one repository file's blob.
func Key(repoID int, filePath, kind string) string {
	return fmt.Sprintf("repo-%d/%s/%s", repoID, kind, filePath)
}

// Put uploads content under key and returns a "blob://bucket/key" reference
// suitable for storing in place of the inline column value.
func (s *Store) Put(ctx context.Context, key string, content []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: put %s: %w", key, err)
	}
	return "blob://" + s.bucket + "/" + key, nil
}

// Get fetches the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get %s: %w", key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read %s: %w", key, err)
	}
	return content, nil
}
