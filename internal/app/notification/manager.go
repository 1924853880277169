// Package notification provides the notification manager for broadcasting session events.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"
)

// Notification types.
const (
	TypeCycleStarted  = "cycle_started"
	TypePhaseChanged  = "phase_changed"
	TypePaused        = "paused"
	TypeResumed       = "resumed"
	TypeStopped       = "stopped"
	TypeTick          = "tick"
	TypeHapticPulse   = "haptic_pulse"
	TypeSessionOpened = "session_opened"
	TypeSessionClosed = "session_closed"
	TypeSettings      = "settings_changed"
)

// DefaultSendTimeout bounds a single subscriber send.
const DefaultSendTimeout = 500 * time.Millisecond

// Notification is a single broadcast event.
type Notification struct {
	SequenceNo uint64
	Type       string
	At         time.Time
	Fields     map[string]any
}

// Struct renders the notification as a protobuf Struct.
func (n *Notification) Struct() (*structpb.Struct, error) {
	fields := make(map[string]any, len(n.Fields)+3)
	for k, v := range n.Fields {
		fields[k] = v
	}
	// Sequence numbers fit a float64 mantissa for any realistic session
	fields["sequence_no"] = float64(n.SequenceNo)
	fields["type"] = n.Type
	fields["at"] = n.At.UTC().Format(time.RFC3339Nano)

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode notification: type=%s", n.Type)
	}
	return s, nil
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   DefaultSendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s", id)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
	zlog.Debug().Msgf("notification: unsubscribed: id=%s", subscriptionID)
}

// Publish builds a notification from fields and broadcasts it.
func (m *Manager) Publish(typ string, fields map[string]any) {
	m.Broadcast(&Notification{
		Type:   typ,
		At:     time.Now(),
		Fields: fields,
	})
}

// Broadcast stamps the notification with the next sequence number and sends it to all subscribers.
// Each stream send runs in a goroutine with a timeout so a slow subscriber cannot block the others.
func (m *Manager) Broadcast(n *Notification) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	n.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	if n.At.IsZero() {
		n.At = time.Now()
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	timeout := m.sendTimeout
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(n)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed: id=%s type=%s err=%v", s.id, n.Type, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: id=%s type=%s", s.id, n.Type)
			}
		}(sub)
	}

	wg.Wait()
}

// SequenceNo returns the last sequence number issued.
func (m *Manager) SequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
