package gmo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/infra/opensearch"
	"github.com/mstgnz/gmopay/provider"
)

// Call describes one HTTP attempt against the gateway. Payloads are masked.
type Call struct {
	RequestID   string
	Environment Environment
	Dialect     string
	Method      string
	Endpoint    string
	Attempt     int
	Params      map[string]string
	Request     map[string]any
	StatusCode  int
	Response    map[string]any
	Duration    time.Duration
	Err         error
}

// CallRecorder receives every gateway attempt for auditing
type CallRecorder interface {
	RecordCall(ctx context.Context, call Call)
}

// OpenSearchRecorder indexes gateway calls asynchronously
type OpenSearchRecorder struct {
	logger  *opensearch.Logger
	timeout time.Duration
}

// NewOpenSearchRecorder creates a recorder backed by an OpenSearch logger
func NewOpenSearchRecorder(l *opensearch.Logger) *OpenSearchRecorder {
	return &OpenSearchRecorder{logger: l, timeout: 5 * time.Second}
}

// RecordCall converts call to a log document and indexes it in the background
func (r *OpenSearchRecorder) RecordCall(_ context.Context, call Call) {
	if !r.logger.IsEnabled() {
		return
	}

	entry := opensearch.GatewayCallLog{
		Timestamp:   time.Now().UTC(),
		Provider:    providerName,
		Environment: string(call.Environment),
		Dialect:     call.Dialect,
		Method:      call.Method,
		Endpoint:    call.Endpoint,
		RequestID:   call.RequestID,
		Attempt:     call.Attempt,
		Request: opensearch.RequestLog{
			Body:   marshalForLog(call.Request),
			Params: call.Params,
		},
		Response: opensearch.ResponseLog{
			StatusCode:       call.StatusCode,
			Body:             marshalForLog(call.Response),
			ProcessingTimeMs: call.Duration.Milliseconds(),
		},
	}
	if call.Err != nil {
		kind, code := errorFields(call.Err)
		entry.Error = opensearch.ErrorInfo{Kind: kind, Code: code, Message: call.Err.Error()}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.logger.LogGatewayCall(ctx, entry); err != nil {
			logger.Warn("Failed to record gateway call", logger.LogContext{
				Provider:  providerName,
				RequestID: call.RequestID,
				Fields:    map[string]any{"error": err.Error()},
			})
		}
	}()
}

// SQLRecorder persists gateway calls in the token cache database
type SQLRecorder struct {
	log     *provider.SQLCallLog
	timeout time.Duration
}

// NewSQLRecorder creates a recorder backed by a SQL call log
func NewSQLRecorder(l *provider.SQLCallLog) *SQLRecorder {
	return &SQLRecorder{log: l, timeout: 5 * time.Second}
}

// RecordCall inserts call synchronously. The write outlives a cancelled
// request context so failed attempts are still kept.
func (r *SQLRecorder) RecordCall(ctx context.Context, call Call) {
	entry := provider.CallLogEntry{
		RequestID:    call.RequestID,
		Environment:  string(call.Environment),
		Dialect:      call.Dialect,
		Method:       call.Method,
		Endpoint:     call.Endpoint,
		Attempt:      call.Attempt,
		StatusCode:   call.StatusCode,
		Request:      marshalForLog(call.Request),
		Response:     marshalForLog(call.Response),
		ProcessingMs: call.Duration.Milliseconds(),
	}
	if call.Err != nil {
		entry.ErrorKind, entry.ErrorCode = errorFields(call.Err)
		entry.ErrorMessage = call.Err.Error()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if _, err := r.log.Insert(ctx, entry); err != nil {
		logger.Warn("Failed to persist gateway call", logger.LogContext{
			Provider:  providerName,
			RequestID: call.RequestID,
			Fields:    map[string]any{"error": err.Error()},
		})
	}
}

// MultiRecorder fans a call out to several recorders in order
type MultiRecorder []CallRecorder

// RecordCall forwards call to every recorder
func (m MultiRecorder) RecordCall(ctx context.Context, call Call) {
	for _, r := range m {
		r.RecordCall(ctx, call)
	}
}

func errorFields(err error) (kind, code string) {
	kind = string(provider.KindOf(err))
	var gwErr *provider.GatewayError
	if errors.As(err, &gwErr) {
		code = gwErr.Code
	}
	return kind, code
}

func marshalForLog(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
