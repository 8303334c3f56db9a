package provider

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// ErrorKind classifies a gateway failure so callers can branch on it
type ErrorKind string

const (
	KindConfiguration    ErrorKind = "configuration_error"
	KindAuthentication   ErrorKind = "authentication_error"
	KindNotAuthenticated ErrorKind = "not_authenticated"
	KindValidation       ErrorKind = "validation_error"
	KindPermission       ErrorKind = "permission_denied"
	KindNotFound         ErrorKind = "not_found"
	KindConnection       ErrorKind = "connection_error"
	KindGateway          ErrorKind = "gateway_error"
)

// Sentinels for errors.Is matching against a *GatewayError kind
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrAuthentication   = errors.New("authentication error")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation error")
	ErrPermission       = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrConnection       = errors.New("connection error")
	ErrGateway          = errors.New("gateway error")
)

var kindSentinels = map[ErrorKind]error{
	KindConfiguration:    ErrConfiguration,
	KindAuthentication:   ErrAuthentication,
	KindNotAuthenticated: ErrNotAuthenticated,
	KindValidation:       ErrValidation,
	KindPermission:       ErrPermission,
	KindNotFound:         ErrNotFound,
	KindConnection:       ErrConnection,
	KindGateway:          ErrGateway,
}

// ParseErrorKind converts a textual kind (as used in configuration) to an ErrorKind
func ParseErrorKind(s string) (ErrorKind, bool) {
	kind := ErrorKind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := kindSentinels[kind]
	return kind, ok
}

// GatewayError is the single typed failure surfaced by the gateway layer
type GatewayError struct {
	Kind        ErrorKind
	StatusCode  int
	Code        string
	Message     string
	Instance    string
	RawResponse string
	Err         error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind
func (e *GatewayError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether repeating the same call could succeed
func (e *GatewayError) Retryable() bool {
	switch e.Kind {
	case KindConnection:
		return true
	case KindGateway:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// IsRetryable reports whether err is a retryable gateway failure
func IsRetryable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Retryable()
	}
	return false
}

// KindOf returns the kind of err, or an empty kind for foreign errors
func KindOf(err error) ErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return ""
}

// NewConfigurationError creates a configuration failure raised before any network call
func NewConfigurationError(message string) *GatewayError {
	return &GatewayError{Kind: KindConfiguration, Message: message}
}

// NewAuthenticationError creates a credential exchange failure
func NewAuthenticationError(message string, cause error) *GatewayError {
	return &GatewayError{Kind: KindAuthentication, Message: message, Err: cause}
}

// NewNotAuthenticatedError creates a failure for calls attempted without a valid token
func NewNotAuthenticatedError(message string) *GatewayError {
	return &GatewayError{Kind: KindNotAuthenticated, Message: message}
}

// NewValidationError creates a request shaping failure detected locally
func NewValidationError(message string) *GatewayError {
	return &GatewayError{Kind: KindValidation, Message: message}
}

// NewConnectionError creates a transport failure
func NewConnectionError(message string, cause error) *GatewayError {
	return &GatewayError{Kind: KindConnection, Message: message, Err: cause}
}

// NewGatewayError creates a generic gateway failure
func NewGatewayError(message string, cause error) *GatewayError {
	return &GatewayError{Kind: KindGateway, Message: message, Err: cause}
}

// ErrorCodeTable maps gateway error codes to human readable messages
type ErrorCodeTable map[string]string

// Describe returns the message for code, or a generic unknown error message
func (t ErrorCodeTable) Describe(code string) string {
	if msg, ok := t[code]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error (code: %s)", code)
}

// Known reports whether code is present in the table
func (t ErrorCodeTable) Known(code string) bool {
	_, ok := t[code]
	return ok
}

// NewCodeError creates a gateway failure enriched with the described gateway code
func NewCodeError(table ErrorCodeTable, code, message string) *GatewayError {
	described := table.Describe(code)
	if message == "" {
		message = described
	} else if message != described {
		message = message + " - " + described
	}
	return &GatewayError{Kind: KindGateway, Code: code, Message: message}
}

// StatusMapper selects an error kind from an HTTP status code
type StatusMapper struct {
	kinds map[int]ErrorKind
}

// DefaultStatusKinds is the canonical status to kind table
func DefaultStatusKinds() map[int]ErrorKind {
	return map[int]ErrorKind{
		http.StatusBadRequest:          KindValidation,
		http.StatusUnprocessableEntity: KindValidation,
		http.StatusUnauthorized:        KindNotAuthenticated,
		http.StatusForbidden:           KindPermission,
		http.StatusNotFound:            KindNotFound,
	}
}

// NewStatusMapper creates a mapper from the default table with overrides applied on top
func NewStatusMapper(overrides map[int]ErrorKind) StatusMapper {
	kinds := DefaultStatusKinds()
	for status, kind := range overrides {
		kinds[status] = kind
	}
	return StatusMapper{kinds: kinds}
}

// ParseStatusOverrides parses "409:validation_error,429:connection_error"
func ParseStatusOverrides(s string) (map[int]ErrorKind, error) {
	overrides := make(map[int]ErrorKind)
	if strings.TrimSpace(s) == "" {
		return overrides, nil
	}

	for _, pair := range strings.Split(s, ",") {
		statusStr, kindStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("invalid status override %q", pair)
		}
		status, err := strconv.Atoi(strings.TrimSpace(statusStr))
		if err != nil || status < 100 || status > 599 {
			return nil, fmt.Errorf("invalid status in override %q", pair)
		}
		kind, ok := ParseErrorKind(kindStr)
		if !ok {
			return nil, fmt.Errorf("unknown error kind in override %q", pair)
		}
		overrides[status] = kind
	}
	return overrides, nil
}

// KindFor returns the kind for status, falling back to the generic gateway kind
func (m StatusMapper) KindFor(status int) ErrorKind {
	if m.kinds == nil {
		m = NewStatusMapper(nil)
	}
	if kind, ok := m.kinds[status]; ok {
		return kind
	}
	return KindGateway
}

// Statuses returns the explicitly mapped statuses in ascending order
func (m StatusMapper) Statuses() []int {
	statuses := make([]int, 0, len(m.kinds))
	for status := range m.kinds {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	return statuses
}

// FromResponse builds a typed error from a non-2xx status and its body.
// A JSON object body contributes title, message/error/detail and instance;
// anything else is carried as the raw message.
func (m StatusMapper) FromResponse(status int, body []byte, table ErrorCodeTable) *GatewayError {
	gwErr := &GatewayError{
		Kind:        m.KindFor(status),
		StatusCode:  status,
		RawResponse: string(body),
	}

	fields, err := ParseJSONObject(body)
	if err != nil || len(fields) == 0 {
		gwErr.Message = strings.TrimSpace(string(body))
		if gwErr.Message == "" {
			gwErr.Message = http.StatusText(status)
		}
		return gwErr
	}

	gwErr.Code = stringField(fields, "title", "code")
	gwErr.Message = stringField(fields, "message", "error", "detail")
	gwErr.Instance = stringField(fields, "instance")
	if gwErr.Message == "" {
		gwErr.Message = http.StatusText(status)
	}
	if gwErr.Code != "" && table.Known(gwErr.Code) {
		gwErr.Message = gwErr.Message + " - " + table.Describe(gwErr.Code)
	}
	return gwErr
}

func stringField(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	return ""
}
