package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"callscribe/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Staging directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir: %s", result.Detail)
	}

	missing := CheckDirectoryAccess("Staging directory", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatal("expected failure for missing directory")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("Free space", dir, 1); !result.Passed {
		t.Fatalf("expected pass for 1 byte requirement: %s", result.Detail)
	}
	if result := CheckFreeSpace("Free space", dir, 1<<62); result.Passed {
		t.Fatal("expected failure for absurd requirement")
	}
}

func TestCheckGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := CheckGateway(context.Background(), config.STT{BaseURL: server.URL, APIKey: "k"})
	if !result.Passed {
		t.Fatalf("expected pass against healthy gateway: %s", result.Detail)
	}

	if result := CheckGateway(context.Background(), config.STT{}); result.Passed {
		t.Fatal("expected failure without base url")
	}
}

func TestCheckGatewayAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	result := CheckGateway(context.Background(), config.STT{BaseURL: server.URL, APIKey: "bad"})
	if result.Passed {
		t.Fatal("expected auth failure")
	}
	if result.Detail != "auth failed (invalid api key)" {
		t.Fatalf("detail = %q", result.Detail)
	}
}
