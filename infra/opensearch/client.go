package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const (
	// SystemLogIndex stores structured application logs
	SystemLogIndex = "gmopay-system-logs"
	// GatewayCallIndex stores one document per outbound gateway call
	GatewayCallIndex = "gmopay-gateway-calls"
)

// Config holds connection settings for OpenSearch
type Config struct {
	URL                string
	Username           string
	Password           string
	Enabled            bool
	InsecureSkipVerify bool
}

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config Config
}

// NewClient creates a new OpenSearch client
func NewClient(cfg Config) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.URL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.Username != "" && cfg.Password != "" {
		opensearchConfig.Username = cfg.Username
		opensearchConfig.Password = cfg.Password
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if cfg.Enabled {
		if err := osClient.setupIndices(context.Background()); err != nil {
			log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
		}
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// setupIndices creates the log indices when missing
func (c *Client) setupIndices(ctx context.Context) error {
	mappings := map[string]string{
		SystemLogIndex:   systemLogMapping,
		GatewayCallIndex: gatewayCallMapping,
	}

	for indexName, mapping := range mappings {
		exists, err := c.indexExists(ctx, indexName)
		if err != nil {
			return fmt.Errorf("checking index %s: %w", indexName, err)
		}
		if exists {
			continue
		}
		if err := c.createIndex(ctx, indexName, mapping); err != nil {
			return fmt.Errorf("creating index %s: %w", indexName, err)
		}
		log.Printf("Created OpenSearch index: %s", indexName)
	}

	return nil
}

// indexExists checks if an index exists
func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

func (c *Client) createIndex(ctx context.Context, indexName, mapping string) error {
	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

const systemLogMapping = `{
	"mappings": {
		"properties": {
			"timestamp": {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
			"level": {"type": "keyword"},
			"message": {"type": "text"},
			"component": {"type": "keyword"},
			"provider": {"type": "keyword"},
			"request_id": {"type": "keyword"},
			"error": {"type": "text"},
			"environment": {"type": "keyword"},
			"service": {"type": "keyword"}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`

const gatewayCallMapping = `{
	"mappings": {
		"properties": {
			"timestamp": {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
			"provider": {"type": "keyword"},
			"environment": {"type": "keyword"},
			"dialect": {"type": "keyword"},
			"method": {"type": "keyword"},
			"endpoint": {"type": "keyword"},
			"request_id": {"type": "keyword"},
			"attempt": {"type": "integer"},
			"request": {
				"type": "object",
				"properties": {
					"body": {"type": "text"},
					"params": {"type": "object"}
				}
			},
			"response": {
				"type": "object",
				"properties": {
					"status_code": {"type": "integer"},
					"body": {"type": "text"},
					"processing_time_ms": {"type": "integer"}
				}
			},
			"error": {
				"type": "object",
				"properties": {
					"kind": {"type": "keyword"},
					"code": {"type": "keyword"},
					"message": {"type": "text"}
				}
			}
		}
	},
	"settings": {"number_of_shards": 1, "number_of_replicas": 0}
}`
