package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// GatewayCallLog represents one outbound call to the payment gateway
type GatewayCallLog struct {
	Timestamp   time.Time   `json:"timestamp"`
	Provider    string      `json:"provider"`
	Environment string      `json:"environment"`
	Dialect     string      `json:"dialect"`
	Method      string      `json:"method"`
	Endpoint    string      `json:"endpoint"`
	RequestID   string      `json:"request_id"`
	Attempt     int         `json:"attempt"`
	Request     RequestLog  `json:"request"`
	Response    ResponseLog `json:"response"`
	Error       ErrorInfo   `json:"error,omitempty"`
}

// RequestLog represents request details; bodies are already masked
type RequestLog struct {
	Body   string            `json:"body,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// ResponseLog represents response details; bodies are already masked
type ResponseLog struct {
	StatusCode       int    `json:"status_code"`
	Body             string `json:"body,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// IsEnabled reports whether documents will be indexed
func (l *Logger) IsEnabled() bool {
	return l != nil && l.client != nil && l.client.IsEnabled()
}

// LogGatewayCall indexes a gateway call document
func (l *Logger) LogGatewayCall(ctx context.Context, entry GatewayCallLog) error {
	if !l.IsEnabled() {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.New().String()[:8]
	}

	return l.index(ctx, GatewayCallIndex, entry)
}

// LogSystemEvent indexes a system log entry
func (l *Logger) LogSystemEvent(ctx context.Context, entry any) error {
	if !l.IsEnabled() {
		return nil
	}
	return l.index(ctx, SystemLogIndex, entry)
}

func (l *Logger) index(ctx context.Context, indexName string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchGatewayCalls searches gateway call logs, newest first
func (l *Logger) SearchGatewayCalls(ctx context.Context, query map[string]any, size int) ([]GatewayCallLog, error) {
	if !l.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}
	if size <= 0 || size > 500 {
		size = 100
	}

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": size,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{GatewayCallIndex},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source GatewayCallLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]GatewayCallLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}

	return logs, nil
}

// GetCallsByRequestID returns every attempt logged under a correlation id
func (l *Logger) GetCallsByRequestID(ctx context.Context, requestID string) ([]GatewayCallLog, error) {
	query := map[string]any{
		"term": map[string]any{
			"request_id": requestID,
		},
	}
	return l.SearchGatewayCalls(ctx, query, 10)
}

// GetRecentErrorCalls returns failed gateway calls from the last hours
func (l *Logger) GetRecentErrorCalls(ctx context.Context, hours int) ([]GatewayCallLog, error) {
	if hours <= 0 {
		hours = 24
	}
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{
					"range": map[string]any{
						"timestamp": map[string]any{
							"gte": fmt.Sprintf("now-%dh", hours),
						},
					},
				},
				{
					"exists": map[string]any{
						"field": "error.kind",
					},
				},
			},
		},
	}
	return l.SearchGatewayCalls(ctx, query, 100)
}
