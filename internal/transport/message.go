package transport

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/gigflow/gigwatch/internal/events"
	"github.com/gigflow/gigwatch/internal/gig"
)

// Inbound frame types recognized by the transport.
const (
	msgGigAlert           = "gig_alert"
	msgApplicationUpdate  = "application_update"
	msgSystemNotification = "system_notification"
	msgPing               = "ping"
	msgPong               = "pong"

	msgSubscribe   = "subscribe_gig_alerts"
	msgUnsubscribe = "unsubscribe_gig_alerts"
	msgUpdate      = "update_gig_preferences"
)

// frame is the envelope of every message on the wire, both directions.
type frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inboundFrame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func unmarshalFrame(data []byte, f *inboundFrame) error {
	if err := json.Unmarshal(data, f); err != nil {
		return fmt.Errorf("parse frame: %w", err)
	}
	if f.Type == "" {
		return fmt.Errorf("frame has no type")
	}
	return nil
}

type subscriptionPayload struct {
	UserID      string                      `json:"userId"`
	Preferences gig.SubscriptionPreferences `json:"preferences"`
}

type unsubscribePayload struct {
	UserID string `json:"userId"`
}

// decodeEvent validates the frame payload against the schema its type
// declares and builds the matching event. A payload that does not fit its
// declared type is an error, handled exactly like an unknown type: the frame
// is dropped.
func decodeEvent(f *inboundFrame) (events.Event, error) {
	switch f.Type {
	case msgGigAlert:
		var g gig.Gig
		if err := decodePayload(f.Payload, &g); err != nil {
			return nil, err
		}
		if g.ID == "" || g.Title == "" {
			return nil, fmt.Errorf("gig alert payload missing id or title")
		}
		return events.GigAlert{Gig: &g}, nil

	case msgApplicationUpdate:
		var update struct {
			ApplicationID string `json:"applicationId" mapstructure:"applicationId"`
			Status        string `json:"status" mapstructure:"status"`
			GigTitle      string `json:"gigTitle" mapstructure:"gigTitle"`
			Notes         string `json:"notes" mapstructure:"notes"`
		}
		if err := decodePayload(f.Payload, &update); err != nil {
			return nil, err
		}
		if update.ApplicationID == "" || update.Status == "" {
			return nil, fmt.Errorf("application update payload missing applicationId or status")
		}
		return events.ApplicationUpdate{
			ApplicationID: update.ApplicationID,
			Status:        update.Status,
			GigTitle:      update.GigTitle,
			Notes:         update.Notes,
		}, nil

	case msgSystemNotification:
		var notification struct {
			Message string `json:"message" mapstructure:"message"`
			Level   string `json:"level" mapstructure:"level"`
		}
		if err := decodePayload(f.Payload, &notification); err != nil {
			return nil, err
		}
		if notification.Message == "" {
			return nil, fmt.Errorf("system notification payload missing message")
		}
		if notification.Level == "" {
			notification.Level = "info"
		}
		return events.SystemNotification{
			Level:   notification.Level,
			Message: notification.Message,
		}, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", f.Type)
	}
}

func decodePayload(payload map[string]any, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("payload does not match declared type: %w", err)
	}

	return nil
}

func encodeFrame(msgType string, payload any) ([]byte, error) {
	return json.Marshal(frame{Type: msgType, Payload: payload})
}
