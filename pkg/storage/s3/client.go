package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
)

// Client wraps an S3-compatible object store (Backblaze B2 in production).
type Client struct {
	api       *awss3.Client
	bucket    string
	publicURL string
}

// New builds the object store client against the configured endpoint.
func New(ctx context.Context, cfg config.StorageConfig) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.BaseEndpoint = awsv2.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Client{
		api:       api,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Put uploads an object and returns its public URL.
func (c *Client) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "object key is required")
	}
	_, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      awsv2.String(c.bucket),
		Key:         awsv2.String(key),
		Body:        bytes.NewReader(data),
		ContentType: awsv2.String(contentType),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uploading object")
	}
	return c.URLFor(key), nil
}

// Delete removes an object. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: awsv2.String(c.bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting object")
	}
	return nil
}

// List returns object keys under the given prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	paginator := awss3.NewListObjectsV2Paginator(c.api, &awss3.ListObjectsV2Input{
		Bucket: awsv2.String(c.bucket),
		Prefix: awsv2.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing objects")
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

// URLFor maps a key to its public URL.
func (c *Client) URLFor(key string) string {
	return c.publicURL + "/" + strings.TrimLeft(key, "/")
}
