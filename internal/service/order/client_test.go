package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitPostsOrderAsJSON(t *testing.T) {
	var got Order
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode order payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Submit(context.Background(), Order{Name: "Анна", City: "Осло", Address: "Сторгата 1"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if got.Name != "Анна" || got.City != "Осло" || got.Address != "Сторгата 1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSubmitRejectsNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.Submit(context.Background(), Order{Name: "Анна", City: "Осло", Address: "Сторгата 1"})
	if err == nil {
		t.Fatalf("expected error for 503 response")
	}
}

func TestSubmitHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL)
	if err := client.Submit(ctx, Order{Name: "Анна"}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
