package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baharkarakas/bankmore/internal/apperr"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
		msg    string
	}{
		{apperr.E(apperr.InsufficientBalance, "insufficient balance"), 422, "INSUFFICIENT_BALANCE", "insufficient balance"},
		{apperr.E(apperr.UpstreamFailure, "down"), 502, "UPSTREAM_FAILURE", "down"},
		{errors.New("pg: connection reset"), 500, "INTERNAL_ERROR", "internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		var body APIError
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != tc.status || body.Type != tc.typ || body.Message != tc.msg {
			t.Fatalf("%v -> %d %+v", tc.err, rec.Code, body)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		A string `json:"a"`
	}
	ok := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"x"}`))
	if err := DecodeJSON(ok, &v); err != nil || v.A != "x" {
		t.Fatalf("decode = %v %+v", err, v)
	}
	for _, body := range []string{`{"b":1}`, `{"a":"x"}{}`, `nope`} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := DecodeJSON(r, &v); apperr.KindOf(err) != apperr.InvalidArgument {
			t.Fatalf("%s: err = %v", body, err)
		}
	}
}
