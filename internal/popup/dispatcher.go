package popup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"phonebridge/internal/calls"
	"phonebridge/internal/metrics"
	"phonebridge/internal/zoho"
	"phonebridge/pkg/logger"
)

// API is the slice of the CRM popup surface the dispatcher needs.
type API interface {
	SendPopup(ctx context.Context, accessToken string, payload any) (zoho.PopupResponse, error)
	ClosePopup(ctx context.Context, accessToken, callID string) error
	UpdatePopup(ctx context.Context, accessToken, callID string, update any) error
}

type Config struct {
	MaxRetries     int
	RetryBatchSize int
}

// Dispatcher sends screen-pop notifications for calls and owns the
// dedupe/retry bookkeeping around them. It never fails the surrounding
// webhook: every exported method degrades to a recorded failure.
type Dispatcher struct {
	store    Store
	registry calls.Registry
	api      API
	tokens   zoho.TokenSource

	maxRetries int
	batchSize  int
}

func NewDispatcher(store Store, registry calls.Registry, api API, tokens zoho.TokenSource, cfg Config) *Dispatcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBatchSize <= 0 {
		cfg.RetryBatchSize = 10
	}
	return &Dispatcher{
		store:      store,
		registry:   registry,
		api:        api,
		tokens:     tokens,
		maxRetries: cfg.MaxRetries,
		batchSize:  cfg.RetryBatchSize,
	}
}

// Dispatch sends a popup for the call to one CRM user. A repeat dispatch
// for the same pair resolves to duplicate without touching the API.
func (d *Dispatcher) Dispatch(ctx context.Context, call calls.CallRecord, zohoUserID string) (Record, error) {
	if call.CallID == "" || zohoUserID == "" {
		return Record{}, errors.New("popup: call_id and zoho_user_id required")
	}

	existing, err := d.store.Get(ctx, call.CallID, zohoUserID)
	if err == nil {
		return d.markDuplicate(ctx, existing)
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	payload, err := json.Marshal(BuildPayload(call, zohoUserID))
	if err != nil {
		return Record{}, fmt.Errorf("popup: encode payload: %w", err)
	}

	rec, err := d.store.Create(ctx, Record{
		CallID:     call.CallID,
		ZohoUserID: zohoUserID,
		Extension:  call.Extension,
		Payload:    payload,
		Status:     StatusPending,
	})
	if errors.Is(err, ErrDuplicate) {
		// Lost the race against a concurrent delivery of the same event.
		existing, getErr := d.store.Get(ctx, call.CallID, zohoUserID)
		if getErr != nil {
			return Record{}, getErr
		}
		return d.markDuplicate(ctx, existing)
	}
	if err != nil {
		return Record{}, err
	}

	return d.send(ctx, rec), nil
}

func (d *Dispatcher) markDuplicate(ctx context.Context, rec Record) (Record, error) {
	if rec.Status.Terminal() {
		return rec, nil
	}
	rec.Status = StatusDuplicate
	if err := d.store.Update(ctx, rec); err != nil {
		return Record{}, err
	}
	metrics.PopupOutcomes.WithLabelValues(string(StatusDuplicate)).Inc()
	logger.From(ctx).Info("duplicate popup suppressed", "call_id", rec.CallID, "zoho_user_id", rec.ZohoUserID)
	return rec, nil
}

// send performs one delivery attempt and records its outcome. It returns
// the updated record; delivery problems are captured on the record, not
// returned as errors.
func (d *Dispatcher) send(ctx context.Context, rec Record) Record {
	log := logger.From(ctx)

	token, err := d.tokens.AccessToken(ctx, rec.ZohoUserID)
	if err != nil {
		rec.Status = StatusFailed
		rec.ErrorMessage = "no valid access token available"
		if !errors.Is(err, zoho.ErrNoToken) {
			rec.ErrorMessage = err.Error()
		}
		metrics.PopupOutcomes.WithLabelValues(string(rec.Status)).Inc()
		d.persist(ctx, &rec)
		log.Warn("popup skipped, no access token", "call_id", rec.CallID, "zoho_user_id", rec.ZohoUserID)
		return rec
	}

	start := time.Now()
	resp, sendErr := d.api.SendPopup(ctx, token, json.RawMessage(rec.Payload))
	elapsed := time.Since(start)
	metrics.PopupResponseTime.Observe(elapsed.Seconds())
	ms := int(elapsed.Milliseconds())
	rec.ResponseTimeMS = &ms

	switch {
	case sendErr != nil:
		// Transport failure (timeout, connection reset): same treatment
		// as a transient HTTP failure.
		rec.ErrorMessage = sendErr.Error()
		d.classifyFailure(&rec, true)
		log.Error("popup request failed", "call_id", rec.CallID, "err", sendErr, "status", rec.Status)

	case resp.Success():
		rec.Status = StatusSent
		rec.Response = resp.Body
		rec.ErrorMessage = ""
		if err := d.registry.MarkPopupSent(ctx, rec.CallID); err != nil {
			log.Warn("could not flag call popup_sent", "call_id", rec.CallID, "err", err)
		}
		log.Info("popup sent", "call_id", rec.CallID, "zoho_user_id", rec.ZohoUserID, "response_time_ms", ms)

	default:
		rec.Response = resp.Body
		rec.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Body)
		d.classifyFailure(&rec, resp.Transient())
		log.Error("popup rejected", "call_id", rec.CallID, "http_status", resp.StatusCode, "status", rec.Status)
	}

	metrics.PopupOutcomes.WithLabelValues(string(rec.Status)).Inc()
	d.persist(ctx, &rec)
	return rec
}

// classifyFailure marks the record retry when the failure is transient and
// the retry budget is not exhausted, failed otherwise.
func (d *Dispatcher) classifyFailure(rec *Record, transient bool) {
	if transient && rec.RetryCount < d.maxRetries {
		rec.RetryCount++
		rec.Status = StatusRetry
		return
	}
	rec.Status = StatusFailed
}

func (d *Dispatcher) persist(ctx context.Context, rec *Record) {
	if err := d.store.Update(ctx, *rec); err != nil {
		logger.From(ctx).Error("popup record update failed", "call_id", rec.CallID, "err", err)
	}
}

// Close dismisses one user's popup for an ended call. Best effort: the
// call is over either way, so nothing propagates.
func (d *Dispatcher) Close(ctx context.Context, callID, zohoUserID string) {
	log := logger.From(ctx)

	token, err := d.tokens.AccessToken(ctx, zohoUserID)
	if err != nil {
		log.Warn("cannot close popup, no access token", "call_id", callID, "zoho_user_id", zohoUserID)
		return
	}
	if err := d.api.ClosePopup(ctx, token, callID); err != nil {
		log.Warn("popup close failed", "call_id", callID, "zoho_user_id", zohoUserID, "err", err)
	}
}

// UpdateAllSent pushes a call status change to every popup already on a
// screen. Best effort, same as Close.
func (d *Dispatcher) UpdateAllSent(ctx context.Context, callID, status string) {
	log := logger.From(ctx)

	recs, err := d.store.ListByCallAndStatus(ctx, callID, StatusSent)
	if err != nil {
		log.Error("listing sent popups failed", "call_id", callID, "err", err)
		return
	}
	for _, rec := range recs {
		token, err := d.tokens.AccessToken(ctx, rec.ZohoUserID)
		if err != nil {
			continue
		}
		if err := d.api.UpdatePopup(ctx, token, callID, map[string]string{"status": status}); err != nil {
			log.Warn("popup update failed", "call_id", callID, "zoho_user_id", rec.ZohoUserID, "err", err)
		}
	}
}

// CloseAllSent dismisses every popup that actually reached a screen for
// the call. Called on hangup.
func (d *Dispatcher) CloseAllSent(ctx context.Context, callID string) {
	recs, err := d.store.ListByCallAndStatus(ctx, callID, StatusSent)
	if err != nil {
		logger.From(ctx).Error("listing sent popups failed", "call_id", callID, "err", err)
		return
	}
	for _, rec := range recs {
		d.Close(ctx, callID, rec.ZohoUserID)
	}
}

// SweepStats summarizes one retry sweep.
type SweepStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RetrySweep re-attempts a bounded batch of retry-state popups, oldest
// first. Idempotent; safe to invoke from any external scheduler.
func (d *Dispatcher) RetrySweep(ctx context.Context) (SweepStats, error) {
	recs, err := d.store.ListRetryable(ctx, d.maxRetries, d.batchSize)
	if err != nil {
		return SweepStats{}, err
	}

	stats := SweepStats{}
	for _, rec := range recs {
		stats.Attempted++
		out := d.send(ctx, rec)
		if out.Status != StatusRetry {
			// Every re-attempt counts against the record, not only the
			// transient failures send already accounted for.
			out.RetryCount++
			d.persist(ctx, &out)
		}
		if out.Status == StatusSent {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	if stats.Attempted > 0 {
		logger.From(ctx).Info("popup retry sweep complete",
			"attempted", stats.Attempted, "succeeded", stats.Succeeded, "failed", stats.Failed)
	}
	return stats, nil
}
