package storage

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/itspokchop93/fasho-landing-sub004/internal/config"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// Client wraps the order-drop bucket: fulfillment partners upload order
// export files there, the importer drains them.
type Client struct {
	backend         Provider
	bucketOrders    string
	processedPrefix string
}

func New(cfg *config.Config) *Client {
	var backend Provider

	if cfg.Storage.Provider == "local" {
		backend = NewLocalProvider(cfg.Storage.LocalRoot)
	} else {
		s3Config := &aws.Config{
			Credentials:      credentials.NewStaticCredentials(cfg.Storage.KeyID, cfg.Storage.AppKey, ""),
			Endpoint:         aws.String(cfg.Storage.Endpoint),
			Region:           aws.String(cfg.Storage.Region),
			S3ForcePathStyle: aws.Bool(true),
		}
		sess := session.Must(session.NewSession(s3Config))
		backend = NewS3Provider(sess)
	}

	return &Client{
		backend:         backend,
		bucketOrders:    cfg.Storage.BucketOrders,
		processedPrefix: cfg.Storage.ProcessedPrefix,
	}
}

// NewWithProvider is the test seam: any Provider, any bucket.
func NewWithProvider(backend Provider, bucket, processedPrefix string) *Client {
	return &Client{backend: backend, bucketOrders: bucket, processedPrefix: processedPrefix}
}

// ListOrderFiles returns pending order exports (already-processed files live
// under the processed prefix and are skipped).
func (c *Client) ListOrderFiles() ([]string, error) {
	keys, err := c.backend.List(c.bucketOrders, "")
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", models.ErrUpstreamUnavailable)
	}

	var pending []string
	for _, key := range keys {
		if strings.HasPrefix(key, c.processedPrefix) {
			continue
		}
		if strings.HasSuffix(key, ".json") {
			pending = append(pending, key)
		}
	}
	return pending, nil
}

// ReadOrderFile downloads and returns an order export's raw bytes.
func (c *Client) ReadOrderFile(key string) ([]byte, error) {
	obj, err := c.backend.Get(c.bucketOrders, key)
	if err != nil {
		return nil, fmt.Errorf("read order %s: %w", key, models.ErrUpstreamUnavailable)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read order %s: %w", key, models.ErrUpstreamUnavailable)
	}
	return data, nil
}

// ArchiveOrderFile moves a processed export under the processed prefix so
// the next poll doesn't pick it up again.
func (c *Client) ArchiveOrderFile(key string, data []byte) error {
	dest := c.processedPrefix + key
	if err := c.backend.Put(c.bucketOrders, dest, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("archive order %s: %w", key, models.ErrUpstreamUnavailable)
	}
	return c.backend.Delete(c.bucketOrders, key)
}
