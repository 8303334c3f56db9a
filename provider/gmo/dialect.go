package gmo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mstgnz/gmopay/provider"
)

// Dialect names
const (
	DialectREST   = "rest"
	DialectIDPass = "idpass"
)

const idPassSuffix = ".idPass"

// Dialect is how a request body is encoded and how a 2xx body can still carry an error
type Dialect interface {
	Name() string
	// Send encodes payload into req and dispatches it
	Send(ctx context.Context, hc *provider.ProviderHTTPClient, req *provider.HTTPRequest, payload map[string]any) (*provider.HTTPResponse, error)
	// CheckResult returns an error when a successful HTTP response reports a gateway failure
	CheckResult(result map[string]any, codes provider.ErrorCodeTable) error
}

// RESTDialect sends JSON bodies to the REST API
type RESTDialect struct{}

// Name returns the dialect name
func (RESTDialect) Name() string { return DialectREST }

// Send posts payload as JSON
func (RESTDialect) Send(ctx context.Context, hc *provider.ProviderHTTPClient, req *provider.HTTPRequest, payload map[string]any) (*provider.HTTPResponse, error) {
	if payload != nil {
		req.Body = payload
	}
	return hc.SendJSON(ctx, req)
}

// CheckResult is a no-op: the REST API reports failures through HTTP status
func (RESTDialect) CheckResult(map[string]any, provider.ErrorCodeTable) error {
	return nil
}

// IDPassDialect sends form-encoded bodies to legacy action paths
type IDPassDialect struct{}

// Name returns the dialect name
func (IDPassDialect) Name() string { return DialectIDPass }

// Send posts payload as form fields; nested values are rejected
func (IDPassDialect) Send(ctx context.Context, hc *provider.ProviderHTTPClient, req *provider.HTTPRequest, payload map[string]any) (*provider.HTTPResponse, error) {
	form, err := FormValues(payload)
	if err != nil {
		return nil, provider.NewValidationError(err.Error())
	}
	req.FormData = form
	return hc.SendForm(ctx, req)
}

// CheckResult converts an ErrCode field into a gateway error.
// Multiple codes are pipe separated; the first one is reported.
func (IDPassDialect) CheckResult(result map[string]any, codes provider.ErrorCodeTable) error {
	errCode := firstString(result, "ErrCode", "errCode")
	if errCode == "" {
		return nil
	}
	errInfo := firstString(result, "ErrInfo", "errInfo")

	code := strings.SplitN(errCode, "|", 2)[0]
	message := "gateway rejected the request"
	if errInfo != "" {
		message = fmt.Sprintf("%s (info: %s)", message, errInfo)
	}

	gwErr := provider.NewCodeError(codes, code, message)
	if raw, err := json.Marshal(provider.MaskSensitive(result)); err == nil {
		gwErr.RawResponse = string(raw)
	}
	return gwErr
}

// DialectFor picks the dialect implied by endpoint, else the fallback
func DialectFor(endpoint string, fallback Dialect) Dialect {
	if strings.HasSuffix(endpoint, idPassSuffix) {
		return IDPassDialect{}
	}
	if fallback == nil {
		return RESTDialect{}
	}
	return fallback
}

// NewDialect returns the dialect for a configured name; empty means REST
func NewDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DialectREST:
		return RESTDialect{}, nil
	case DialectIDPass:
		return IDPassDialect{}, nil
	}
	return nil, provider.NewConfigurationError(fmt.Sprintf("unknown dialect %q", name))
}

// FormValues flattens a payload of scalars into form fields
func FormValues(payload map[string]any) (map[string]string, error) {
	form := make(map[string]string, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			form[key] = v
		case json.Number:
			form[key] = v.String()
		case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			form[key] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("field %s has unsupported type %T for form encoding", key, value)
		}
	}
	return form, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
