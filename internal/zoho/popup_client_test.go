package zoho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendPopupReturnsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/phonebridge/v3/calls/popup" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewPopupClient(srv.URL, 0)
	resp, err := c.SendPopup(context.Background(), "tok", map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("expected success for 201, got %d", resp.StatusCode)
	}
}

func TestPopupResponseTransient(t *testing.T) {
	cases := map[int]bool{
		200: false,
		400: false,
		404: false,
		429: true,
		500: true,
		503: true,
	}
	for code, want := range cases {
		if got := (PopupResponse{StatusCode: code}).Transient(); got != want {
			t.Fatalf("code %d: expected transient=%v", code, want)
		}
	}
}

func TestClosePopupTreats404AsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewPopupClient(srv.URL, 0)
	if err := c.ClosePopup(context.Background(), "tok", "C1"); err != nil {
		t.Fatalf("404 must count as closed, got %v", err)
	}
}

func TestClosePopupPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewPopupClient(srv.URL, 0)
	if err := c.ClosePopup(context.Background(), "tok", "C1"); err == nil {
		t.Fatalf("expected error for 500")
	}
}

func TestUpdatePopupPatchesCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/phonebridge/v3/calls/C1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewPopupClient(srv.URL, 0)
	if err := c.UpdatePopup(context.Background(), "tok", "C1", map[string]string{"status": "connected"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
