package httpapi_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi"
	"github.com/custodia-labs/sercha-intel/internal/connectors/httpapi/fetchtest"
	"github.com/custodia-labs/sercha-intel/internal/core/domain"
	"github.com/custodia-labs/sercha-intel/internal/core/ports/driven"
)

func TestEscapeComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3.4", "1.2.3.4"},
		{"example.com", "example.com"},
		{"a b", "a%20b"},
		{"http://evil.example/x?y=1&z=2", "http%3A%2F%2Fevil.example%2Fx%3Fy%3D1%26z%3D2"},
		{"it's(ok)!*~", "it's(ok)!*~"},
		{"a+b", "a%2Bb"},
		{"2001:db8::1", "2001%3Adb8%3A%3A1"},
		{"héllo", "h%C3%A9llo"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, httpapi.EscapeComponent(tt.in))
		})
	}
}

func TestForm_Encode(t *testing.T) {
	f := httpapi.Form{{"url", "http://x.example/a b"}, {"limit", "5"}}
	assert.Equal(t, "url=http%3A%2F%2Fx.example%2Fa%20b&limit=5", f.Encode())
}

func TestClient_Do_ResolvesRelativeURL(t *testing.T) {
	f := fetchtest.New(fetchtest.JSON(200, `{}`))
	c := httpapi.Client{Provider: "p", BaseURL: "https://api.example", Fetcher: f}

	_, err := c.Get(context.Background(), "/v1/thing", httpapi.Header("Accept", "application/json"))
	require.NoError(t, err)

	req := f.Last()
	assert.Equal(t, "p", req.Provider)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://api.example/v1/thing", req.URL)
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestClient_PostJSON(t *testing.T) {
	f := fetchtest.New(fetchtest.JSON(200, `{}`))
	c := httpapi.Client{Provider: "p", BaseURL: "https://api.example", Fetcher: f}

	_, err := c.PostJSON(context.Background(), "/q", map[string]any{"days": 7}, nil)
	require.NoError(t, err)

	req := f.Last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"days":7}`, string(req.Body))
}

func TestClient_Check(t *testing.T) {
	c := httpapi.Client{Provider: "p"}

	assert.NoError(t, c.Check(&driven.Response{StatusCode: 204}))

	err := c.Check(&driven.Response{StatusCode: 429, Body: []byte("slow down")})
	assert.True(t, domain.IsTransient(err))

	err = c.Check(&driven.Response{StatusCode: 401, Body: []byte("bad key")})
	assert.True(t, domain.IsPermanent(err))
	ie, ok := domain.AsIntegrationError(err)
	require.True(t, ok)
	assert.Equal(t, "p", ie.Provider)
	assert.Equal(t, 401, ie.StatusCode)
	assert.Equal(t, "bad key", ie.Snippet)
}

func TestDecode_Malformed(t *testing.T) {
	type payload struct {
		Count int `json:"count"`
	}

	_, err := httpapi.Decode[payload]("p", &driven.Response{StatusCode: 200, Body: []byte("<html>oops</html>")})
	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrUnexpectedResponse)

	ie, _ := domain.AsIntegrationError(err)
	assert.Equal(t, "<html>oops</html>", ie.Snippet)
}

func TestRequireAPIKey(t *testing.T) {
	_, err := httpapi.RequireAPIKey("p", domain.Credentials{})
	assert.True(t, domain.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	key, err := httpapi.RequireAPIKey("p", domain.Credentials{domain.CredentialAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "k", key)
}

func TestRoutes_Resolve(t *testing.T) {
	r := httpapi.Routes{
		ByType: map[domain.ArtifactType]httpapi.Route{
			domain.ArtifactIP:   {Segment: "IPv4"},
			domain.ArtifactHash: {Segment: "file"},
		},
		Fallback: domain.ArtifactIP,
	}

	route, err := r.Resolve("p", domain.ArtifactHash)
	require.NoError(t, err)
	assert.Equal(t, "file", route.Segment)

	route, err = r.Resolve("p", domain.ArtifactType("asn"))
	require.NoError(t, err)
	assert.Equal(t, "IPv4", route.Segment)

	assert.Equal(t, []domain.ArtifactType{domain.ArtifactIP, domain.ArtifactHash}, r.Types())

	strict := httpapi.Routes{ByType: r.ByType}
	_, err = strict.Resolve("p", domain.ArtifactURL)
	assert.True(t, domain.IsPermanent(err))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestInt_UnmarshalJSON(t *testing.T) {
	var v struct {
		A httpapi.Int `json:"a"`
		B httpapi.Int `json:"b"`
		C httpapi.Int `json:"c"`
		D httpapi.Int `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"7","c":null,"d":3.0}`), &v))
	assert.Equal(t, httpapi.Int(12), v.A)
	assert.Equal(t, httpapi.Int(7), v.B)
	assert.Equal(t, httpapi.Int(0), v.C)
	assert.Equal(t, httpapi.Int(3), v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"many"}`), &v))
}

func TestInt_UnmarshalJSON_Saturates(t *testing.T) {
	tests := []struct {
		in   string
		want httpapi.Int
	}{
		{`1e19`, httpapi.Int(math.MaxInt)},
		{`"10000000000000000000"`, httpapi.Int(math.MaxInt)},
		{`-1e19`, httpapi.Int(math.MinInt)},
		{`1e400`, httpapi.Int(math.MaxInt)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n httpapi.Int
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestPut(t *testing.T) {
	data := map[string]any{}
	n := 5
	httpapi.Put(data, "present", &n)
	httpapi.Put[string](data, "absent", nil)
	httpapi.PutSlice[string](data, "nil_slice", nil)
	httpapi.PutSlice(data, "empty_slice", []string{})
	httpapi.PutRaw(data, "raw", json.RawMessage(`{"x":[1,2]}`))
	httpapi.PutRaw(data, "null_raw", json.RawMessage(`null`))

	assert.Equal(t, 5, data["present"])
	assert.NotContains(t, data, "absent")
	assert.NotContains(t, data, "nil_slice")
	assert.Equal(t, []string{}, data["empty_slice"])
	assert.Contains(t, data, "raw")
	assert.NotContains(t, data, "null_raw")
}

func TestFetchtest_TransportErrorIsTransient(t *testing.T) {
	f := fetchtest.New(fetchtest.TransportError())
	c := httpapi.Client{Provider: "p", BaseURL: "https://api.example", Fetcher: f}

	_, err := c.Get(context.Background(), "/", nil)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 0, f.Remaining())
}
