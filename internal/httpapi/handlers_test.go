package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"phonebridge/internal/auth"
	"phonebridge/internal/bindings"
	"phonebridge/internal/calls"
	"phonebridge/internal/config"
	"phonebridge/internal/popup"
	"phonebridge/internal/stats"
	"phonebridge/internal/zoho"
)

type okAPI struct{}

func (okAPI) SendPopup(ctx context.Context, token string, payload any) (zoho.PopupResponse, error) {
	return zoho.PopupResponse{StatusCode: 201, Body: "{}"}, nil
}
func (okAPI) ClosePopup(ctx context.Context, token, callID string) error { return nil }
func (okAPI) UpdatePopup(ctx context.Context, token, callID string, update any) error {
	return nil
}

func testEnv(t *testing.T) (*gin.Engine, *calls.MemoryRegistry, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	tok, err := mgr.Issue(time.Now(), "user-1", "", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	registry := calls.NewMemoryRegistry()
	store := popup.NewMemoryStore()
	h := Handlers{
		Auth:     mgr,
		Registry: registry,
		Bindings: bindings.NewMemoryDirectory(bindings.Binding{Extension: "101", ZohoUserID: "z1", Active: true}),
		Stats:    stats.NewService(store),
		Popups:   popup.NewDispatcher(store, registry, okAPI{}, &zoho.StaticTokenSource{Fallback: "tok"}, popup.Config{}),
	}

	r := gin.New()
	r.POST("/auth/login", h.Login)
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(mgr))
	v1.GET("/calls", h.ListCalls)
	v1.GET("/calls/:call_id", h.GetCall)
	v1.GET("/extensions", h.ListExtensions)
	v1.GET("/popups/stats", h.PopupStats)
	v1.POST("/popups/retry-sweep", h.RetrySweep)
	return r, registry, tok
}

func doReq(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _, _ := testEnv(t)
	if w := doReq(r, http.MethodGet, "/v1/calls", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestListAndGetCalls(t *testing.T) {
	r, registry, tok := testEnv(t)
	_, _, err := registry.GetOrCreate(context.Background(), "call-1", calls.Initial{
		Extension: "101", Direction: calls.DirectionInbound,
		CallerNumber: "0712345678", StartTime: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := doReq(r, http.MethodGet, "/v1/calls", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", w.Code, w.Body.String())
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("count = %d, want 1", list.Count)
	}

	if w := doReq(r, http.MethodGet, "/v1/calls/call-1", tok, ""); w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w := doReq(r, http.MethodGet, "/v1/calls/ghost", tok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("ghost status = %d, want 404", w.Code)
	}
}

func TestListCallsRejectsBadLimit(t *testing.T) {
	r, _, tok := testEnv(t)
	if w := doReq(r, http.MethodGet, "/v1/calls?limit=0", tok, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	r, _, _ := testEnv(t)
	w := doReq(r, http.MethodPost, "/auth/login", "", `{"user_id":"u1","role":"admin"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w := doReq(r, http.MethodGet, "/v1/extensions", out.AccessToken, ""); w.Code != http.StatusOK {
		t.Fatalf("extensions with issued token = %d", w.Code)
	}
}

func TestPopupStatsAndSweep(t *testing.T) {
	r, _, tok := testEnv(t)

	w := doReq(r, http.MethodGet, "/v1/popups/stats?hours=1", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d: %s", w.Code, w.Body.String())
	}

	w = doReq(r, http.MethodPost, "/v1/popups/retry-sweep", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("sweep status = %d: %s", w.Code, w.Body.String())
	}
	var sw popup.SweepStats
	if err := json.Unmarshal(w.Body.Bytes(), &sw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sw.Attempted != 0 {
		t.Fatalf("attempted = %d, want 0 on empty store", sw.Attempted)
	}
}
