package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]any
	}{
		{"form", "foo=bar&baz=qux", map[string]any{"foo": "bar", "baz": "qux"}},
		{"form_escaped", "Name=Shop+A&Note=a%26b", map[string]any{"Name": "Shop A", "Note": "a&b"}},
		{"form_last_duplicate_wins", "a=1&a=2", map[string]any{"a": "2"}},
		{"form_empty_value", "AccessID=&Status=OK", map[string]any{"AccessID": "", "Status": "OK"}},
		{"json_object", `{"foo":"bar"}`, map[string]any{"foo": "bar"}},
		{"json_number", `{"amount":1500}`, map[string]any{"amount": json.Number("1500")}},
		{"json_array", `[1,2]`, map[string]any{"data": []any{json.Number("1"), json.Number("2")}}},
		{"json_scalar", `"ok"`, map[string]any{"data": "ok"}},
		{"surrounding_whitespace", "  \n{\"a\":\"b\"}\n", map[string]any{"a": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponseBody([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResponseBody_Empty(t *testing.T) {
	for _, body := range []string{"", "   \n"} {
		assert.True(t, IsEmptyBody([]byte(body)))
		got, err := ParseResponseBody([]byte(body))
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.False(t, IsEmptyBody([]byte(" a=1 ")))
}

func TestParseResponseBody_Malformed(t *testing.T) {
	for _, body := range []string{
		"foo", "foo=bar&baz", "<html></html>", "=value", "a=%zz",
		`<a href="x">home</a>`, `<p class=x>`, `error page=1`, `"quoted"=1`,
	} {
		t.Run(body, func(t *testing.T) {
			_, err := ParseResponseBody([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGateway)

			var gwErr *GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, body, gwErr.RawResponse)
		})
	}
}

func TestParseFormBody(t *testing.T) {
	got, err := ParseFormBody("ErrCode=E01|E02&ErrInfo=E01190001")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ErrCode": "E01|E02", "ErrInfo": "E01190001"}, got)

	got, err = ParseFormBody("Card%5B0%5D=x&order_id=A-1.2")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Card[0]": "x", "order_id": "A-1.2"}, got)

	got, err = ParseFormBody("a=1&&b=2")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ParseFormBody("&&")
	assert.Error(t, err)
}

func TestParseJSONObject(t *testing.T) {
	obj, err := ParseJSONObject([]byte(` {"access_token":"abc","expires_in":3600}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", obj["access_token"])
	assert.Equal(t, json.Number("3600"), obj["expires_in"])

	_, err = ParseJSONObject([]byte(`[1]`))
	assert.Error(t, err)
	_, err = ParseJSONObject([]byte(`{"broken"`))
	assert.Error(t, err)
	_, err = ParseJSONObject(nil)
	assert.Error(t, err)
}
