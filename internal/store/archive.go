package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrArchiveDisabled is returned when archiving is requested without a
// configured bucket.
var ErrArchiveDisabled = errors.New("archive not configured")

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Archive stores JSON documents under a key prefix in one bucket.
type S3Archive struct {
	client ObjectAPI
	bucket string
	prefix string
}

// NewS3Archive loads the default AWS credential chain for region.
func NewS3Archive(ctx context.Context, bucket, region, prefix string) (*S3Archive, error) {
	if bucket == "" {
		return nil, ErrArchiveDisabled
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for backup archive: %w", err)
	}

	return NewS3ArchiveWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3ArchiveWithClient wraps an existing client.
func NewS3ArchiveWithClient(client ObjectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

func (a *S3Archive) key(name string) string {
	return path.Join(a.prefix, name)
}

// Put uploads data as name and returns the full object key.
func (a *S3Archive) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := a.key(name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

// Get downloads name. A missing object yields nil data and no error.
func (a *S3Archive) Get(ctx context.Context, name string) ([]byte, error) {
	key := a.key(name)
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, fmt.Errorf("S3 GetObject %s/%s: %w", a.bucket, key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	return body, nil
}

// Remove deletes name. Deleting a missing object is not an error.
func (a *S3Archive) Remove(ctx context.Context, name string) error {
	key := a.key(name)
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject %s/%s: %w", a.bucket, key, err)
	}
	return nil
}

// Blob exposes one archive object as a Blob, so the live database can
// itself be kept in S3.
func (a *S3Archive) Blob(name string) Blob {
	return &s3Blob{archive: a, name: name}
}

type s3Blob struct {
	archive *S3Archive
	name    string
}

func (b *s3Blob) Load(ctx context.Context) ([]byte, error) {
	return b.archive.Get(ctx, b.name)
}

func (b *s3Blob) Save(ctx context.Context, data []byte) error {
	_, err := b.archive.Put(ctx, b.name, data)
	return err
}

func (b *s3Blob) Delete(ctx context.Context) error {
	return b.archive.Remove(ctx, b.name)
}
