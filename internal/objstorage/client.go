// Package objstorage wraps aws-sdk-go-v2/service/s3 with the put/get/
// delete_prefix/ensure_bucket contract spec.md §4.D describes, grounded on
// the teacher's MinIO-capable S3 uploader.
package objstorage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/retrywrap"
)

// putTimeout matches spec.md §5's 30s object-storage put bound.
const putTimeout = 30 * time.Second

// Client is the object storage adapter.
type Client struct {
	s3     *s3.Client
	bucket string
	retry  retrywrap.Config
}

// New constructs a Client from a StorageEndpoint, supporting MinIO's
// path-style addressing exactly as the teacher's uploader does
// (controlplane/s3-uploader/internal/uploader.Uploader).
func New(ctx context.Context, ep domain.StorageEndpoint) (*Client, string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(ep.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ep.AccessKey, ep.SecretKey, "")),
	)
	if err != nil {
		return nil, "", fmt.Errorf("objstorage: load config for %s: %w", ep.ID, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep.EndpointURL != "" {
			o.BaseEndpoint = aws.String(ep.EndpointURL)
		}
		o.UsePathStyle = ep.UsePathStyle
	})

	c := &Client{s3: client, bucket: ep.Bucket, retry: retrywrap.DefaultConfig()}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, "", err
	}
	return c, ep.Bucket, nil
}

// EnsureBucket is called at construction, matching the teacher's
// Uploader.ensureBucket pattern: create if missing, ignore "already owned"
// errors.
func (c *Client) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	_, err = c.s3.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("objstorage: ensure bucket %s: %w", c.bucket, err)
	}
	return nil
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Put uploads bytes under key, setting the content-hash object metadata to
// sha256(bytes), returning the object's addressable URL.
func (c *Client) Put(ctx context.Context, key string, data []byte, metadata map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["content-hash"] = contentHash(data)

	_, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (struct{}, error) {
		_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:   aws.String(c.bucket),
			Key:      aws.String(key),
			Body:     bytes.NewReader(data),
			Metadata: meta,
		})
		return struct{}{}, err
	})
	if err != nil {
		return "", fmt.Errorf("objstorage: put %s: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// Get downloads the object at key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	out, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (*s3.GetObjectOutput, error) {
		return c.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	})
	if err != nil {
		return nil, fmt.Errorf("objstorage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// DeletePrefix deletes every object under prefix in one bulk call,
// surfacing any per-object failure atomically as a single error per
// spec.md §4.D.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, putTimeout)
	defer cancel()

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("objstorage: list prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	objects := make([]s3types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		objects[i] = s3types.ObjectIdentifier{Key: aws.String(k)}
	}

	out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.bucket),
		Delete: &s3types.Delete{Objects: objects},
	})
	if err != nil {
		return fmt.Errorf("objstorage: delete prefix %s: %w", prefix, err)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("objstorage: delete prefix %s: %d objects failed (first: %s)",
			prefix, len(out.Errors), aws.ToString(out.Errors[0].Message))
	}
	return nil
}
