package vitalpbx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Client is a thin wrapper over the VitalPBX admin API ({base}/v2).
// Stateless request/response only; call state lives in the registry.
type Client struct {
	apiBase string
	apiKey  string
	tenant  string
	http    *http.Client
}

type ClientConfig struct {
	APIBase string
	APIKey  string
	Tenant  string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		tenant:  cfg.Tenant,
		http:    &http.Client{Timeout: timeout},
	}
}

// OriginateResult reports a click-to-call attempt.
type OriginateResult struct {
	ActionID string `json:"action_id"`
}

// OriginateCall rings the agent's extension and connects it to destination.
func (c *Client) OriginateCall(ctx context.Context, extension, destination, callerID string) (OriginateResult, error) {
	if callerID == "" {
		callerID = extension
	}
	actionID := "call_" + uuid.NewString()

	payload := map[string]any{
		"Channel":  "PJSIP/" + extension,
		"Context":  "from-internal",
		"Exten":    destination,
		"Priority": 1,
		"CallerID": callerID,
		"Async":    true,
		"ActionID": actionID,
	}

	resp, err := c.do(ctx, http.MethodPost, "originate", payload)
	if err != nil {
		return OriginateResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return OriginateResult{}, fmt.Errorf("originate %s -> %s: HTTP %d: %s", extension, destination, resp.StatusCode, body)
	}

	// The PBX echoes the ActionID back; fall back to ours when the body
	// is not JSON (observed on some firmware versions).
	var out struct {
		ActionID string `json:"ActionID"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.ActionID != "" {
		actionID = out.ActionID
	}
	return OriginateResult{ActionID: actionID}, nil
}

// HangupCall terminates an active call.
func (c *Client) HangupCall(ctx context.Context, callID string) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("calls/%s/hangup", url.PathEscape(callID)), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("hangup call %s: HTTP %d", callID, resp.StatusCode)
	}
	return nil
}

// CallStatus fetches the PBX's view of a call as raw JSON.
func (c *Client) CallStatus(ctx context.Context, callID string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("calls/%s", url.PathEscape(callID)), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("call status %s: HTTP %d", callID, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// TestConnection verifies the API base and key are usable.
func (c *Client) TestConnection(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "tenants", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vitalpbx connection test: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	u := fmt.Sprintf("%s/v2/%s", c.apiBase, endpoint)
	if c.tenant != "" {
		u += "?tenant=" + url.QueryEscape(c.tenant)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("app-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vitalpbx %s %s: %w", method, endpoint, err)
	}
	return resp, nil
}
