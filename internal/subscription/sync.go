// Package subscription keeps the server-side alert subscription aligned with
// the user's local preference snapshot.
package subscription

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/events"
	"github.com/gigflow/gigwatch/internal/gig"
)

// AlertSender is the slice of the alert transport the sync needs.
type AlertSender interface {
	Connected() bool
	SubscribeGigAlerts(userID string, prefs gig.SubscriptionPreferences)
	UnsubscribeGigAlerts(userID string)
	UpdateGigAlertPreferences(userID string, prefs gig.SubscriptionPreferences)
}

// Sync tracks the latest subscription preferences and pushes diffs to the
// transport. Updates arriving while the transport is disconnected are dropped,
// not queued; the full snapshot is re-sent on every reconnect instead.
type Sync struct {
	transport AlertSender
	logger    *zap.Logger

	mu         sync.Mutex
	userID     string
	enabled    bool
	subscribed bool
	last       *gig.SubscriptionPreferences
}

func New(transport AlertSender, logger *zap.Logger) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sync{
		transport: transport,
		logger:    logger,
	}
}

// Bind subscribes the sync to transport lifecycle events on the bus so it can
// (re)establish the server-side subscription after every connect.
func (s *Sync) Bind(bus *events.Bus) {
	bus.Subscribe(events.KindConnected, func(events.Event) {
		s.handleConnected()
	})
}

// Apply absorbs a fresh profile snapshot. Depending on connection state and
// what changed, it subscribes, updates, unsubscribes, or does nothing.
func (s *Sync) Apply(profile *gig.UserProfile) {
	if profile == nil {
		return
	}

	prefs := profile.SubscriptionPreferences()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = profile.ID
	wasEnabled := s.enabled
	s.enabled = profile.Notifications.Alerts

	changed := s.last == nil || !reflect.DeepEqual(*s.last, prefs)
	s.last = &prefs

	if !s.enabled {
		if wasEnabled && s.subscribed {
			s.unsubscribeLocked()
		}
		return
	}

	if !s.transport.Connected() {
		if changed {
			s.logger.Debug("transport not connected, dropping preference update")
		}
		return
	}

	if !s.subscribed {
		s.transport.SubscribeGigAlerts(s.userID, prefs)
		s.subscribed = true
		s.logger.Info("subscribed to gig alerts", zap.String("user_id", s.userID))
		return
	}

	if changed {
		s.transport.UpdateGigAlertPreferences(s.userID, prefs)
		s.logger.Info("updated gig alert preferences", zap.String("user_id", s.userID))
	}
}

// OptOut tears down the server-side subscription and disables further syncing
// until a profile with alerts enabled is applied again.
func (s *Sync) OptOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = false
	if s.subscribed {
		s.unsubscribeLocked()
	}
}

func (s *Sync) handleConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A new connection starts with no server-side subscription.
	s.subscribed = false

	if !s.enabled || s.last == nil {
		return
	}

	s.transport.SubscribeGigAlerts(s.userID, *s.last)
	s.subscribed = true
	s.logger.Info("subscribed to gig alerts", zap.String("user_id", s.userID))
}

func (s *Sync) unsubscribeLocked() {
	if s.transport.Connected() {
		s.transport.UnsubscribeGigAlerts(s.userID)
		s.logger.Info("unsubscribed from gig alerts", zap.String("user_id", s.userID))
	}
	s.subscribed = false
}
