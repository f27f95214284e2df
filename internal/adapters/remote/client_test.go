package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldmark/fieldmark/internal/adapters/remote"
	"github.com/fieldmark/fieldmark/internal/core/domain"
)

func TestUpload(t *testing.T) {
	var gotPath string
	var gotArtifact domain.CaptureArtifact
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotArtifact); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := remote.New(srv.URL, time.Second)
	err := client.Upload(context.Background(), &domain.CaptureArtifact{
		ID:      "a1",
		Kind:    domain.KindLocation,
		Payload: []byte(`{"latitude":-1.28,"longitude":36.81}`),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotPath != "/v1/sync/location" {
		t.Fatalf("path = %q, want /v1/sync/location", gotPath)
	}
	if gotArtifact.ID != "a1" {
		t.Fatalf("uploaded artifact id = %q", gotArtifact.ID)
	}
}

func TestUpload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "intake unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := remote.New(srv.URL, time.Second)
	err := client.Upload(context.Background(), &domain.CaptureArtifact{
		ID:   "a1",
		Kind: domain.KindPhoto,
	})
	if err == nil {
		t.Fatal("Upload succeeded against a 503 response")
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	client := remote.New(srv.URL, time.Second)
	if !client.Probe(context.Background()) {
		t.Fatal("Probe = false against a healthy hub")
	}

	srv.Close()
	if client.Probe(context.Background()) {
		t.Fatal("Probe = true against a closed hub")
	}
}
