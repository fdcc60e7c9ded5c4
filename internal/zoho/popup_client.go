package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PopupClient talks to the Zoho PhoneBridge popup API
// ({base}/phonebridge/v3). It is a thin transport wrapper: classification
// of outcomes (transient vs permanent) belongs to the popup dispatcher.
type PopupClient struct {
	base string
	http *http.Client
}

func NewPopupClient(apiBase string, timeout time.Duration) *PopupClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PopupClient{
		base: apiBase + "/phonebridge/v3",
		http: &http.Client{Timeout: timeout},
	}
}

// PopupResponse carries the raw API outcome back to the dispatcher.
// Err is set only for transport-level failures (timeout, connection reset);
// an HTTP error status is a populated response, not an error.
type PopupResponse struct {
	StatusCode int
	Body       string
}

func (r PopupResponse) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transient reports whether the failure is worth retrying.
func (r PopupResponse) Transient() bool {
	return r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500
}

func (c *PopupClient) SendPopup(ctx context.Context, accessToken string, payload any) (PopupResponse, error) {
	return c.do(ctx, http.MethodPost, c.base+"/calls/popup", accessToken, payload)
}

// ClosePopup dismisses the popup for an ended call. 404 means it was
// already gone and counts as success.
func (c *PopupClient) ClosePopup(ctx context.Context, accessToken, callID string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/calls/%s/close", c.base, callID), accessToken, nil)
	if err != nil {
		return err
	}
	if resp.Success() || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("close popup for call %s: HTTP %d", callID, resp.StatusCode)
}

// UpdatePopup patches an on-screen popup with fresh call data.
func (c *PopupClient) UpdatePopup(ctx context.Context, accessToken, callID string, update any) error {
	resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("%s/calls/%s", c.base, callID), accessToken, update)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("update popup for call %s: HTTP %d", callID, resp.StatusCode)
	}
	return nil
}

func (c *PopupClient) do(ctx context.Context, method, url, accessToken string, payload any) (PopupResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return PopupResponse{}, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return PopupResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PopupResponse{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return PopupResponse{StatusCode: resp.StatusCode, Body: string(raw)}, nil
}
