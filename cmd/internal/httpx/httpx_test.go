package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/cmd/internal/auth/access"
	"taskflow/cmd/internal/dbx"
)

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusTeapot, "teapot", "short and stout")

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	code, msg := decodeErr(t, rr)
	assert.Equal(t, "teapot", code)
	assert.Equal(t, "short and stout", msg)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"name":"x"}`, true},
		{"unknown field", `{"name":"x","extra":1}`, false},
		{"trailing data", `{"name":"x"}{"name":"y"}`, false},
		{"too large", `{"name":"` + strings.Repeat("a", 200) + `"}`, false},
		{"not json", `name=x`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), r, 64, &dst)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, "x", dst.Name)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestWriteAccessError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{access.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{access.ErrAccountInactive, http.StatusBadRequest, "inactive_user"},
		{access.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("db down"), http.StatusInternalServerError, "server_error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteAccessError(rr, nil, "test", tc.err)
		assert.Equal(t, tc.status, rr.Code)
		code, _ := decodeErr(t, rr)
		assert.Equal(t, tc.code, code)
		if tc.status == http.StatusUnauthorized {
			assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		}
	}
}

func TestParsePage(t *testing.T) {
	good := map[string]dbx.Page{
		"/":                 {Skip: 0, Limit: 100},
		"/?skip=5&limit=10": {Skip: 5, Limit: 10},
		"/?limit=100":       {Skip: 0, Limit: 100},
		"/?skip=0&limit=1":  {Skip: 0, Limit: 1},
	}
	for target, want := range good {
		got, err := ParsePage(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err, target)
		assert.Equal(t, want, got, target)
	}

	for _, target := range []string{"/?skip=-1", "/?limit=0", "/?limit=101", "/?skip=abc"} {
		_, err := ParsePage(httptest.NewRequest(http.MethodGet, target, nil))
		require.Error(t, err, target)
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var gotErr error
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = PathID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/zero", nil))
	require.Error(t, gotErr)
}
