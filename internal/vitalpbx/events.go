package vitalpbx

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// VitalPBX delivers call lifecycle events as JSON webhooks. One parse step
// turns the untyped payload into a tagged event variant; everything the
// state machine consumes is typed from here on.
//
// Keep this file adapter-only. Business logic (state transitions, popups)
// is not made here.

var ErrMissingCallID = errors.New("event missing Uniqueid")

// Event is one classified webhook delivery.
type Event interface {
	CallID() string
	EventName() string
}

type NewChannelEvent struct {
	Uniqueid     string
	Channel      string
	Context      string
	CallerIDNum  string
	CallerIDName string
	Exten        string
}

type DialEvent struct {
	Uniqueid string
}

type BridgeEvent struct {
	Uniqueid string
}

type HangupEvent struct {
	Uniqueid    string
	HangupCause string
}

type RecordStartEvent struct {
	Uniqueid      string
	RecordingFile string
}

type RecordStopEvent struct {
	Uniqueid      string
	RecordingFile string
}

// OtherEvent covers event types the pipeline does not act on. They are
// logged and ignored, never treated as errors.
type OtherEvent struct {
	Uniqueid string
	Name     string
}

func (e NewChannelEvent) CallID() string  { return e.Uniqueid }
func (e DialEvent) CallID() string        { return e.Uniqueid }
func (e BridgeEvent) CallID() string      { return e.Uniqueid }
func (e HangupEvent) CallID() string      { return e.Uniqueid }
func (e RecordStartEvent) CallID() string { return e.Uniqueid }
func (e RecordStopEvent) CallID() string  { return e.Uniqueid }
func (e OtherEvent) CallID() string       { return e.Uniqueid }

func (e NewChannelEvent) EventName() string  { return "Newchannel" }
func (e DialEvent) EventName() string        { return "Dial" }
func (e BridgeEvent) EventName() string      { return "Bridge" }
func (e HangupEvent) EventName() string      { return "Hangup" }
func (e RecordStartEvent) EventName() string { return "RecordStart" }
func (e RecordStopEvent) EventName() string  { return "RecordStop" }
func (e OtherEvent) EventName() string       { return e.Name }

type rawEvent struct {
	Event         string `json:"Event"`
	Uniqueid      string `json:"Uniqueid"`
	Channel       string `json:"Channel"`
	Context       string `json:"Context"`
	CallerIDNum   string `json:"CallerIDNum"`
	CallerIDName  string `json:"CallerIDName"`
	Exten         string `json:"Exten"`
	HangupCause   string `json:"HangupCause"`
	RecordingFile string `json:"RecordingFile"`
}

// ParseEvent classifies one webhook body. Unparseable JSON and a missing
// call id are errors; an unknown event name is not.
func ParseEvent(body []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	if raw.Uniqueid == "" {
		return nil, ErrMissingCallID
	}

	switch raw.Event {
	case "Newchannel":
		return NewChannelEvent{
			Uniqueid:     raw.Uniqueid,
			Channel:      raw.Channel,
			Context:      raw.Context,
			CallerIDNum:  raw.CallerIDNum,
			CallerIDName: raw.CallerIDName,
			Exten:        raw.Exten,
		}, nil
	case "Dial":
		return DialEvent{Uniqueid: raw.Uniqueid}, nil
	case "Bridge":
		return BridgeEvent{Uniqueid: raw.Uniqueid}, nil
	case "Hangup":
		return HangupEvent{Uniqueid: raw.Uniqueid, HangupCause: raw.HangupCause}, nil
	case "RecordStart":
		return RecordStartEvent{Uniqueid: raw.Uniqueid, RecordingFile: raw.RecordingFile}, nil
	case "RecordStop":
		return RecordStopEvent{Uniqueid: raw.Uniqueid, RecordingFile: raw.RecordingFile}, nil
	default:
		return OtherEvent{Uniqueid: raw.Uniqueid, Name: raw.Event}, nil
	}
}

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

var inboundContexts = []string{"from-pstn", "from-trunk", "from-external", "inbound", "from-did"}
var outboundContexts = []string{"from-internal", "from-zoho", "outbound", "from-extensions"}

// DetermineDirection inspects the dialing context, falling back to the
// channel technology. Ambiguity defaults to inbound: a missed popup for an
// agent's own outbound call is cheaper than a missed inbound one.
func DetermineDirection(context, channel string) string {
	ctx := strings.ToLower(context)
	for _, c := range inboundContexts {
		if strings.Contains(ctx, c) {
			return DirectionInbound
		}
	}
	for _, c := range outboundContexts {
		if strings.Contains(ctx, c) {
			return DirectionOutbound
		}
	}
	if strings.Contains(strings.ToLower(channel), "local") {
		return DirectionOutbound
	}
	return DirectionInbound
}

// Channel strings look like "PJSIP/101-00000001"; the digits after the
// technology prefix are the extension.
var channelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`PJSIP/(\d+)-`),
	regexp.MustCompile(`SIP/(\d+)-`),
	regexp.MustCompile(`Local/(\d+)@`),
	regexp.MustCompile(`DAHDI/(\d+)-`),
}

// ExtractExtension pulls the PBX extension out of a channel identifier.
// Empty means no extension could be derived (trunk channels, odd formats).
func ExtractExtension(channel string) string {
	for _, p := range channelPatterns {
		if m := p.FindStringSubmatch(channel); m != nil {
			return m[1]
		}
	}
	return ""
}
