package hue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paperhome/paperhome/internal/statemachine"
)

// ConnState tracks the bridge connection lifecycle.
type ConnState uint8

const (
	// StateDisconnected means no bridge contact yet.
	StateDisconnected ConnState = iota
	// StateUnpaired means the bridge answered but no application key exists.
	StateUnpaired
	// StateConnected means polling is delivering room state.
	StateConnected
	// StateError means the last poll failed.
	StateError
)

// String returns a short name for logs and screens.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateUnpaired:
		return "unpaired"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the room state handed to screens.
type Snapshot struct {
	Rooms     []Room
	State     ConnState
	UpdatedAt time.Time
}

// hueState guards the latest snapshot.
type hueState struct {
	sync.RWMutex
	rooms     []Room
	updatedAt time.Time
}

func (s *hueState) get() ([]Room, time.Time) {
	s.RLock()
	defer s.RUnlock()
	return s.rooms, s.updatedAt
}

func (s *hueState) update(rooms []Room, at time.Time) {
	s.Lock()
	defer s.Unlock()
	s.rooms = rooms
	s.updatedAt = at
}

// Manager polls the bridge in the background and serves snapshots.
type Manager struct {
	client   *Client
	interval time.Duration
	log      *slog.Logger

	machine *statemachine.Machine[ConnState]
	state   *hueState

	// Lifecycle
	pollCancel context.CancelFunc

	// onUpdate fires after every successful poll that changed state.
	onUpdate func()

	// onKey fires with the application key minted by Pair.
	onKey func(key string)
}

// NewManager returns an unstarted manager polling at interval.
func NewManager(client *Client, interval time.Duration, log *slog.Logger) *Manager {
	m := statemachine.New("hue", StateDisconnected)
	m.Allow(StateDisconnected, StateUnpaired, StateConnected, StateError)
	m.Allow(StateUnpaired, StateConnected, StateError)
	m.Allow(StateConnected, StateError, StateDisconnected)
	m.Allow(StateError, StateConnected, StateUnpaired, StateDisconnected)

	return &Manager{
		client:   client,
		interval: interval,
		log:      log.With("module", "hue"),
		machine:  m,
		state:    &hueState{},
	}
}

// OnUpdate registers a callback invoked after each successful poll.
// Must be called before Start.
func (m *Manager) OnUpdate(fn func()) {
	m.onUpdate = fn
}

// OnKey registers a callback invoked with the application key minted
// by a successful Pair, so the caller can persist it. Must be called
// before Start.
func (m *Manager) OnKey(fn func(key string)) {
	m.onKey = fn
}

// Start begins background polling. Safe to call with an unpaired
// client; the manager parks in StateUnpaired until a key arrives.
func (m *Manager) Start(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	go m.poll(pollCtx)
	return nil
}

// Stop halts the poller.
func (m *Manager) Stop() {
	if m.pollCancel != nil {
		m.pollCancel()
	}
}

// ConnState returns the current connection state.
func (m *Manager) ConnState() ConnState {
	return m.machine.State()
}

// Snapshot returns the latest room state.
func (m *Manager) Snapshot() Snapshot {
	rooms, at := m.state.get()
	return Snapshot{Rooms: rooms, State: m.machine.State(), UpdatedAt: at}
}

// Pair requests an application key from the bridge. The bridge's link
// button must have been pressed within the last 30 seconds or the
// bridge answers ErrLinkButtonNotPressed. On success the key is handed
// to the OnKey callback and polling resumes immediately.
func (m *Manager) Pair(ctx context.Context, deviceType string) error {
	key, err := m.client.Pair(ctx, deviceType)
	if err != nil {
		return err
	}
	m.client.SetAppKey(key)
	m.log.Info("paired with bridge")
	if m.onKey != nil {
		m.onKey(key)
	}
	m.fetch(ctx)
	return nil
}

// ToggleRoom flips a room's grouped light and refreshes state so the
// next render shows the result without waiting out the poll interval.
func (m *Manager) ToggleRoom(ctx context.Context, roomID string) error {
	rooms, _ := m.state.get()
	for _, r := range rooms {
		if r.ID != roomID || r.GroupedLightID == "" {
			continue
		}
		if err := m.client.SetGroupOn(ctx, r.GroupedLightID, !r.On); err != nil {
			return err
		}
		m.fetch(ctx)
		return nil
	}
	return nil
}

func (m *Manager) poll(ctx context.Context) {
	m.fetch(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fetch(ctx)
		}
	}
}

func (m *Manager) fetch(ctx context.Context) {
	if m.client.key() == "" {
		m.transition(StateUnpaired)
		return
	}

	rooms, err := m.client.Rooms(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.log.Error("poll failed", "err", err)
		m.transition(StateError)
		return
	}

	prev, _ := m.state.get()
	m.state.update(rooms, time.Now())
	m.transition(StateConnected)
	m.log.Debug("rooms updated", "rooms", len(rooms))

	if m.onUpdate != nil && roomsChanged(prev, rooms) {
		m.onUpdate()
	}
}

func (m *Manager) transition(to ConnState) {
	if err := m.machine.TransitionTo(to); err != nil {
		m.log.Warn("state transition rejected", "from", m.machine.State(), "to", to)
	}
}

func roomsChanged(a, b []Room) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}
