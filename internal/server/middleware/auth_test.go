package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	identity Identity
	err      error
}

func (v *fakeValidator) ValidateToken(tokenString string) (Identity, error) {
	return v.identity, v.err
}

func echoIdentity(t *testing.T) (http.Handler, *Identity) {
	t.Helper()
	var got Identity
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := GetIdentity(r)
		require.NoError(t, err)
		got = identity
		w.WriteHeader(http.StatusOK)
	})
	return h, &got
}

func TestAuthenticate_ValidToken(t *testing.T) {
	want := Identity{UserID: uuid.New(), Username: "alice", Role: "employee"}
	handler, got := echoIdentity(t)

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()

	Authenticate(&fakeValidator{identity: want})(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, *got)
}

func TestAuthenticate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
		err    error
	}{
		{name: "missing header"},
		{name: "not bearer", header: "Basic abc"},
		{name: "empty token", header: "Bearer"},
		{name: "invalid token", header: "Bearer bad", err: errors.New("expired")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			})
			Authenticate(&fakeValidator{err: tc.err})(next).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthenticate_BearerCaseInsensitive(t *testing.T) {
	handler, _ := echoIdentity(t)
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Authorization", "bearer sometoken")
	rec := httptest.NewRecorder()

	Authenticate(&fakeValidator{identity: Identity{Username: "alice"}})(handler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := RequireRole("admin", "hr")(next)

	t.Run("allowed role", func(t *testing.T) {
		req := WithIdentity(httptest.NewRequest("GET", "/x", nil), Identity{Role: "admin"})
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("role match is case insensitive", func(t *testing.T) {
		req := WithIdentity(httptest.NewRequest("GET", "/x", nil), Identity{Role: "HR"})
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbidden role", func(t *testing.T) {
		req := WithIdentity(httptest.NewRequest("GET", "/x", nil), Identity{Role: "employee"})
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
