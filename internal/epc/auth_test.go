package epc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestAuthClientCachesToken(t *testing.T) {
	var logins atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/sso/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		logins.Add(1)
		w.Write([]byte(`{"data": {"oauth": {"sso_token": "sso-abc", "expires_in": 3600}}}`))
	}))
	defer srv.Close()

	auth, err := NewAuthClient(srv.URL, "user@example.com", "secret", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		tok, err := auth.BearerToken(context.Background())
		if err != nil {
			t.Fatalf("BearerToken failed: %v", err)
		}
		if tok != "sso-abc" {
			t.Errorf("token = %q", tok)
		}
	}
	if logins.Load() != 1 {
		t.Errorf("expected 1 login, got %d", logins.Load())
	}

	auth.Invalidate()
	if _, err := auth.BearerToken(context.Background()); err != nil {
		t.Fatalf("BearerToken after invalidate failed: %v", err)
	}
	if logins.Load() != 2 {
		t.Errorf("expected fresh login after invalidation, got %d", logins.Load())
	}
}

func TestAuthClientTopLevelTokenFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "top-level", "expires_in": 60}`))
	}))
	defer srv.Close()

	auth, err := NewAuthClient(srv.URL, "user@example.com", "secret", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	tok, err := auth.BearerToken(context.Background())
	if err != nil {
		t.Fatalf("BearerToken failed: %v", err)
	}
	if tok != "top-level" {
		t.Errorf("token = %q", tok)
	}
}

func TestAuthClientRequiresCredentials(t *testing.T) {
	if _, err := NewAuthClient("http://x", "", "pw", testLogger()); err == nil {
		t.Error("expected error for missing email")
	}
	if _, err := NewAuthClient("http://x", "a@b.c", "", testLogger()); err == nil {
		t.Error("expected error for missing password")
	}
}

func TestAuthClientMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}}`))
	}))
	defer srv.Close()

	auth, err := NewAuthClient(srv.URL, "user@example.com", "secret", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.BearerToken(context.Background()); err == nil {
		t.Fatal("expected error when response carries no token")
	}
}
