package provider

import (
	"net/http"
	"strings"
)

const maskPrefix = "****"

// sensitiveKeyParts are matched case-insensitively as substrings of a field name
var sensitiveKeyParts = []string{
	"pass",
	"secret",
	"cardno",
	"cardnumber",
	"card_number",
	"securitycode",
	"security_code",
	"cvv",
	"cvc",
	"token",
	"access",
	"authorization",
	"apikey",
	"api_key",
	"api-key",
	"encrypted",
}

// IsSensitiveKey reports whether a field name holds a credential or card datum
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(keyLower, part) {
			return true
		}
	}
	return false
}

// MaskValue keeps the last 4 characters of strings longer than 4 and masks everything else
func MaskValue(value any) string {
	if s, ok := value.(string); ok {
		if r := []rune(s); len(r) > 4 {
			return maskPrefix + string(r[len(r)-4:])
		}
	}
	return maskPrefix
}

// MaskSensitive returns a copy of data with sensitive fields masked at any depth
func MaskSensitive(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return maskMap(data)
}

// MaskStrings is MaskSensitive for flat string maps such as form fields or query params
func MaskStrings(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	masked := make(map[string]string, len(data))
	for key, value := range data {
		if IsSensitiveKey(key) {
			masked[key] = MaskValue(value)
			continue
		}
		masked[key] = value
	}
	return masked
}

// MaskHeaders masks credential headers such as Authorization
func MaskHeaders(headers http.Header) map[string]string {
	masked := make(map[string]string, len(headers))
	for key := range headers {
		value := headers.Get(key)
		if IsSensitiveKey(key) {
			masked[key] = MaskValue(value)
			continue
		}
		masked[key] = value
	}
	return masked
}

func maskRecursive(data any) any {
	switch v := data.(type) {
	case map[string]any:
		return maskMap(v)
	case map[string]string:
		return MaskStrings(v)
	case []any:
		masked := make([]any, len(v))
		for i, item := range v {
			masked[i] = maskRecursive(item)
		}
		return masked
	case []map[string]any:
		masked := make([]any, len(v))
		for i, item := range v {
			masked[i] = maskMap(item)
		}
		return masked
	default:
		return v
	}
}

func maskMap(data map[string]any) map[string]any {
	masked := make(map[string]any, len(data))
	for key, value := range data {
		if IsSensitiveKey(key) {
			switch value.(type) {
			case map[string]any, []any, []map[string]any, map[string]string:
				// Containers named like secrets are still walked so their leaves are masked
				masked[key] = maskAll(value)
			default:
				masked[key] = MaskValue(value)
			}
			continue
		}
		masked[key] = maskRecursive(value)
	}
	return masked
}

// maskAll masks every leaf under a sensitive container
func maskAll(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = maskAll(value)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = MaskValue(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskAll(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskAll(item)
		}
		return out
	default:
		return MaskValue(v)
	}
}
