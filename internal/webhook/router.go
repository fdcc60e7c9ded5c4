package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phonebridge/internal/bindings"
	"phonebridge/internal/calls"
	"phonebridge/internal/phone"
	"phonebridge/internal/popup"
	"phonebridge/internal/vitalpbx"
	"phonebridge/internal/zoho"
	"phonebridge/pkg/logger"
)

// ContactDirectory is the CRM lookup slice the router needs.
type ContactDirectory interface {
	SearchByPhone(ctx context.Context, variants []string) ([]zoho.Contact, error)
}

// Popups is the dispatch surface the router drives.
type Popups interface {
	Dispatch(ctx context.Context, call calls.CallRecord, zohoUserID string) (popup.Record, error)
	UpdateAllSent(ctx context.Context, callID, status string)
	CloseAllSent(ctx context.Context, callID string)
}

// Router turns raw PBX webhook bodies into call-record updates and popup
// dispatches. Enrichment and popups are best effort; only registry write
// failures bubble up to the HTTP handler.
type Router struct {
	registry   calls.Registry
	normalizer *phone.Normalizer
	contacts   ContactDirectory
	extensions bindings.Directory
	popups     Popups

	popupsEnabled bool
}

func NewRouter(registry calls.Registry, normalizer *phone.Normalizer, contacts ContactDirectory, extensions bindings.Directory, popups Popups, popupsEnabled bool) *Router {
	return &Router{
		registry:      registry,
		normalizer:    normalizer,
		contacts:      contacts,
		extensions:    extensions,
		popups:        popups,
		popupsEnabled: popupsEnabled,
	}
}

// Process handles one webhook delivery. The caller has already committed
// to a 200 ACK; a returned error means the delivery could not be applied
// and should be logged with the payload for replay.
func (r *Router) Process(ctx context.Context, raw []byte) error {
	ev, err := vitalpbx.ParseEvent(raw)
	if err != nil {
		return fmt.Errorf("parse event: %w", err)
	}

	switch e := ev.(type) {
	case vitalpbx.NewChannelEvent:
		return r.handleNewChannel(ctx, e)
	case vitalpbx.DialEvent:
		return r.transition(ctx, e.Uniqueid, calls.StateRinging, calls.Merge{})
	case vitalpbx.BridgeEvent:
		if err := r.transition(ctx, e.Uniqueid, calls.StateConnected, calls.Merge{}); err != nil {
			return err
		}
		if r.popups != nil {
			r.popups.UpdateAllSent(ctx, e.Uniqueid, string(calls.StateConnected))
		}
		return nil
	case vitalpbx.HangupEvent:
		return r.handleHangup(ctx, e)
	case vitalpbx.RecordStartEvent:
		return r.transition(ctx, e.Uniqueid, calls.StateInitiated, calls.Merge{
			AppendNote: "Recording started: " + e.RecordingFile,
		})
	case vitalpbx.RecordStopEvent:
		return r.transition(ctx, e.Uniqueid, calls.StateInitiated, calls.Merge{
			RecordingURL: e.RecordingFile,
		})
	default:
		logger.From(ctx).Debug("ignoring event", "event", ev.EventName(), "call_id", ev.CallID())
		return nil
	}
}

func (r *Router) handleNewChannel(ctx context.Context, e vitalpbx.NewChannelEvent) error {
	log := logger.From(ctx)

	direction := calls.Direction(vitalpbx.DetermineDirection(e.Context, e.Channel))

	// For inbound calls the external party is the caller and the dialed
	// exten is ours; outbound is the reverse.
	var extension, external string
	if direction == calls.DirectionInbound {
		extension = e.Exten
		if extension == "" {
			extension = vitalpbx.ExtractExtension(e.Channel)
		}
		external = e.CallerIDNum
	} else {
		extension = vitalpbx.ExtractExtension(e.Channel)
		if extension == "" {
			extension = e.CallerIDNum
		}
		external = e.Exten
	}

	rec, created, err := r.registry.GetOrCreate(ctx, e.Uniqueid, calls.Initial{
		Extension:    extension,
		Direction:    direction,
		CallerNumber: e.CallerIDNum,
		CalledNumber: e.Exten,
		StartTime:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create call %s: %w", e.Uniqueid, err)
	}
	if !created {
		log.Debug("call already tracked", "call_id", e.Uniqueid)
		return nil
	}

	log.Info("call created",
		"call_id", rec.CallID, "direction", rec.Direction,
		"extension", rec.Extension, "caller", rec.CallerNumber)

	if extension == "" {
		// Still tracked for state, but nobody to pop.
		log.Warn("no extension on channel, skipping enrichment and popups",
			"call_id", rec.CallID, "channel", e.Channel)
		return nil
	}

	rec = r.enrich(ctx, rec, external)
	r.dispatchPopups(ctx, rec)
	return nil
}

// enrich normalizes the external number, looks the party up in the CRM and
// attaches history. Failures downgrade to an unenriched record.
func (r *Router) enrich(ctx context.Context, rec calls.CallRecord, external string) calls.CallRecord {
	log := logger.From(ctx)
	if external == "" {
		return rec
	}

	res := r.normalizer.Normalize(external)
	if res.Valid {
		rec.NormalizedPhone = res.Normalized
	}

	var snapshot *calls.ContactSnapshot
	if r.contacts != nil {
		matches, err := r.contacts.SearchByPhone(ctx, r.normalizer.SearchVariants(external))
		if err != nil {
			log.Warn("contact lookup failed", "call_id", rec.CallID, "err", err)
		} else if best, ok := zoho.BestMatch(matches); ok {
			snapshot = &calls.ContactSnapshot{
				ID:      best.ID,
				Name:    best.Name,
				Company: best.Company,
				Email:   best.Email,
				Type:    best.Module,
			}
			rec.ContactID = best.ID
			rec.ContactName = best.Name
			rec.ContactCompany = best.Company
			rec.ContactEmail = best.Email
			rec.ContactType = best.Module
		}
	}

	if rec.NormalizedPhone != "" {
		n, err := r.registry.CountCompletedByPhone(ctx, rec.NormalizedPhone)
		if err != nil {
			log.Warn("call history count failed", "call_id", rec.CallID, "err", err)
		} else {
			rec.CallHistoryCount = n
		}
	}

	if err := r.registry.SetEnrichment(ctx, rec.CallID, rec.NormalizedPhone, snapshot, rec.CallHistoryCount); err != nil {
		log.Warn("persisting enrichment failed", "call_id", rec.CallID, "err", err)
	}
	return rec
}

func (r *Router) dispatchPopups(ctx context.Context, rec calls.CallRecord) {
	log := logger.From(ctx)
	if !r.popupsEnabled || r.popups == nil {
		return
	}

	bnds, err := r.extensions.ActiveForExtension(ctx, rec.Extension)
	if err != nil {
		log.Error("binding lookup failed", "call_id", rec.CallID, "extension", rec.Extension, "err", err)
		return
	}
	for _, b := range bnds {
		if b.ZohoUserID == "" {
			continue
		}
		if _, err := r.popups.Dispatch(ctx, rec, b.ZohoUserID); err != nil {
			log.Error("popup dispatch failed",
				"call_id", rec.CallID, "zoho_user_id", b.ZohoUserID, "err", err)
		}
	}
}

func (r *Router) handleHangup(ctx context.Context, e vitalpbx.HangupEvent) error {
	rec, err := r.registry.Find(ctx, e.Uniqueid)
	if errors.Is(err, calls.ErrNotFound) {
		logger.From(ctx).Warn("hangup for unknown call", "call_id", e.Uniqueid)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find call %s: %w", e.Uniqueid, err)
	}

	end := time.Now().UTC()
	m := calls.Merge{EndTime: &end}
	if !rec.StartTime.IsZero() {
		if secs := int(end.Sub(rec.StartTime).Seconds()); secs >= 0 {
			m.DurationSeconds = &secs
		}
	}

	if err := r.transition(ctx, e.Uniqueid, causeToState(e.HangupCause), m); err != nil {
		return err
	}
	if r.popups != nil {
		r.popups.CloseAllSent(ctx, e.Uniqueid)
	}
	return nil
}

func (r *Router) transition(ctx context.Context, callID string, state calls.State, m calls.Merge) error {
	_, err := r.registry.Transition(ctx, callID, state, m)
	if errors.Is(err, calls.ErrNotFound) {
		logger.From(ctx).Warn("event for unknown call", "call_id", callID, "state", state)
		return nil
	}
	if err != nil {
		return fmt.Errorf("transition call %s to %s: %w", callID, state, err)
	}
	return nil
}

// causeToState maps Q.850 hangup causes onto terminal call states.
// Unrecognized causes count as completed; the call did end.
func causeToState(cause string) calls.State {
	switch cause {
	case "17":
		return calls.StateBusy
	case "18", "19":
		return calls.StateNoAnswer
	case "21", "34":
		return calls.StateFailed
	default:
		return calls.StateCompleted
	}
}
