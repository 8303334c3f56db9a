package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNotJSONObject = errors.New("body is not a JSON object")

// ParseResponseBody decodes a gateway response body into a mapping.
// JSON is attempted first, then legacy key=value&key=value pairs.
// An empty body yields an empty mapping; see IsEmptyBody.
func ParseResponseBody(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	if json.Valid(trimmed) {
		var decoded any
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return nil, NewGatewayError("failed to decode JSON response", err)
		}
		if obj, ok := decoded.(map[string]any); ok {
			return obj, nil
		}
		// Arrays and scalars are kept under a single key
		return map[string]any{"data": decoded}, nil
	}

	values, err := ParseFormBody(string(trimmed))
	if err != nil {
		gwErr := NewGatewayError("malformed response body", err)
		gwErr.RawResponse = string(body)
		return nil, gwErr
	}

	result := make(map[string]any, len(values))
	for k, v := range values {
		result[k] = v
	}
	return result, nil
}

// IsEmptyBody reports whether body has nothing but whitespace
func IsEmptyBody(body []byte) bool {
	return len(bytes.TrimSpace(body)) == 0
}

// ParseFormBody parses a URL-encoded body. Later duplicates win.
func ParseFormBody(body string) (map[string]string, error) {
	result := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("pair %q has no value separator", pair)
		}
		if !validFormKey(rawKey) {
			return nil, fmt.Errorf("pair %q does not start with a form key", pair)
		}
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", rawKey, err)
		}
		if key == "" {
			return nil, fmt.Errorf("empty key in pair %q", pair)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}
		result[key] = value
	}
	if len(result) == 0 {
		return nil, errors.New("no key=value pairs found")
	}
	return result, nil
}

// validFormKey accepts the characters a URL-encoded key can hold, which
// rules out markup such as <a href="x">
func validFormKey(raw string) bool {
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_-.~%+[]*", r):
		default:
			return false
		}
	}
	return true
}

// ParseJSONObject decodes body only when it is a JSON object
func ParseJSONObject(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotJSONObject
	}
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}
