package tado

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/paperhome/paperhome/internal/statemachine"
)

// ConnState tracks the cloud connection lifecycle.
type ConnState uint8

const (
	// StateNeedsAuth means no refresh token exists yet.
	StateNeedsAuth ConnState = iota
	// StateAwaitingGrant means a device code is waiting for approval.
	StateAwaitingGrant
	// StateConnected means polling is delivering zone state.
	StateConnected
	// StateError means the last poll failed.
	StateError
)

// String returns a short name for logs and screens.
func (s ConnState) String() string {
	switch s {
	case StateNeedsAuth:
		return "needs auth"
	case StateAwaitingGrant:
		return "awaiting grant"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ZoneSnapshot joins a zone's name with its live state.
type ZoneSnapshot struct {
	ID            int
	Name          string
	Heating       bool
	TargetCelsius float64
	InsideCelsius float64
	Humidity      float64
	HeatingPower  float64
}

// Snapshot is the climate state handed to screens. Auth is non-nil
// only while a device-code grant waits for the user.
type Snapshot struct {
	Home      string
	Zones     []ZoneSnapshot
	State     ConnState
	Auth      *DeviceAuth
	UpdatedAt time.Time
}

// tadoState guards the latest snapshot.
type tadoState struct {
	sync.RWMutex
	home      string
	zones     []ZoneSnapshot
	auth      *DeviceAuth
	updatedAt time.Time
}

func (s *tadoState) snapshot() Snapshot {
	s.RLock()
	defer s.RUnlock()
	return Snapshot{Home: s.home, Zones: s.zones, Auth: s.auth, UpdatedAt: s.updatedAt}
}

func (s *tadoState) setAuth(auth *DeviceAuth) {
	s.Lock()
	defer s.Unlock()
	s.auth = auth
}

func (s *tadoState) setZones(home string, zones []ZoneSnapshot, at time.Time) {
	s.Lock()
	defer s.Unlock()
	s.home = home
	s.zones = zones
	s.updatedAt = at
}

const (
	authRetryInterval = 30 * time.Second
	pollRetryInterval = time.Minute
)

// Manager runs the auth flow and polls zone state in the background.
type Manager struct {
	client   *Client
	homeName string
	interval time.Duration
	log      *slog.Logger

	machine *statemachine.Machine[ConnState]
	state   *tadoState

	homeID    int
	zoneNames map[int]string

	// Lifecycle
	runCancel context.CancelFunc

	onTokens func(refreshToken string)
	onUpdate func()
	saved    string
}

// NewManager returns an unstarted manager. homeName selects among the
// account's homes; empty picks the first.
func NewManager(client *Client, homeName string, interval time.Duration, log *slog.Logger) *Manager {
	m := statemachine.New("tado", StateNeedsAuth)
	m.Allow(StateNeedsAuth, StateAwaitingGrant, StateConnected)
	m.Allow(StateAwaitingGrant, StateConnected, StateNeedsAuth)
	m.Allow(StateConnected, StateError, StateNeedsAuth)
	m.Allow(StateError, StateConnected, StateNeedsAuth)

	return &Manager{
		client:    client,
		homeName:  homeName,
		interval:  interval,
		log:       log.With("module", "tado"),
		machine:   m,
		state:     &tadoState{},
		zoneNames: map[int]string{},
	}
}

// OnTokens registers a callback that persists the rotated refresh
// token. Must be called before Start.
func (m *Manager) OnTokens(fn func(refreshToken string)) {
	m.onTokens = fn
}

// OnUpdate registers a callback invoked after each state change worth
// redrawing. Must be called before Start.
func (m *Manager) OnUpdate(fn func()) {
	m.onUpdate = fn
}

// Start begins the background auth/poll loop.
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.runCancel = cancel
	go m.run(runCtx)
	return nil
}

// Stop halts the background loop.
func (m *Manager) Stop() {
	if m.runCancel != nil {
		m.runCancel()
	}
}

// ConnState returns the current connection state.
func (m *Manager) ConnState() ConnState {
	return m.machine.State()
}

// Snapshot returns the latest climate state.
func (m *Manager) Snapshot() Snapshot {
	snap := m.state.snapshot()
	snap.State = m.machine.State()
	return snap
}

func (m *Manager) run(ctx context.Context) {
	if m.client.Authorized() {
		m.transition(StateConnected)
	}

	for ctx.Err() == nil {
		switch m.machine.State() {
		case StateNeedsAuth:
			m.beginAuth(ctx)
		case StateAwaitingGrant:
			m.awaitGrant(ctx)
		case StateConnected:
			m.fetch(ctx)
			m.sleep(ctx, m.interval)
		case StateError:
			m.sleep(ctx, pollRetryInterval)
			m.fetch(ctx)
		}
	}
}

// beginAuth starts a device-code grant and surfaces it for screens.
func (m *Manager) beginAuth(ctx context.Context) {
	auth, err := m.client.DeviceAuthorize(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.log.Error("device authorize failed", "err", err)
		m.sleep(ctx, authRetryInterval)
		return
	}

	m.log.Info("device grant started", "code", auth.UserCode, "uri", auth.VerificationURI)
	m.state.setAuth(&auth)
	m.transition(StateAwaitingGrant)
	m.notify()
}

// awaitGrant polls the token endpoint until the user approves the
// code, the grant expires, or the context ends.
func (m *Manager) awaitGrant(ctx context.Context) {
	auth := m.state.snapshot().Auth
	if auth == nil {
		m.transition(StateNeedsAuth)
		return
	}

	for ctx.Err() == nil {
		if time.Now().After(auth.ExpiresAt) {
			m.log.Warn("device grant expired, restarting auth")
			m.state.setAuth(nil)
			m.transition(StateNeedsAuth)
			m.notify()
			return
		}

		m.sleep(ctx, auth.Interval)
		err := m.client.PollDeviceToken(ctx, auth.DeviceCode)
		if errors.Is(err, ErrAuthorizationPending) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Error("device grant failed", "err", err)
			m.state.setAuth(nil)
			m.transition(StateNeedsAuth)
			m.notify()
			return
		}

		m.log.Info("device grant approved")
		m.state.setAuth(nil)
		m.persistToken()
		m.transition(StateConnected)
		m.notify()
		return
	}
}

func (m *Manager) fetch(ctx context.Context) {
	if err := m.resolveHome(ctx); err != nil {
		m.fetchFailed(ctx, err)
		return
	}

	states, err := m.client.ZoneStates(ctx, m.homeID)
	if err != nil {
		m.fetchFailed(ctx, err)
		return
	}

	zones := make([]ZoneSnapshot, 0, len(states))
	for id, zs := range states {
		zones = append(zones, ZoneSnapshot{
			ID:            id,
			Name:          m.zoneNames[id],
			Heating:       zs.Heating,
			TargetCelsius: zs.TargetCelsius,
			InsideCelsius: zs.InsideCelsius,
			Humidity:      zs.Humidity,
			HeatingPower:  zs.HeatingPower,
		})
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ID < zones[j].ID })

	prev := m.state.snapshot().Zones
	m.state.setZones(m.state.snapshot().Home, zones, time.Now())
	m.transition(StateConnected)
	m.persistToken()
	m.log.Debug("zones updated", "zones", len(zones))

	if zonesChanged(prev, zones) {
		m.notify()
	}
}

func (m *Manager) fetchFailed(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, ErrNotAuthorized) {
		m.log.Warn("authorization lost, restarting auth", "err", err)
		m.transition(StateNeedsAuth)
		m.notify()
		return
	}
	m.log.Error("poll failed", "err", err)
	m.transition(StateError)
}

// resolveHome looks up the home id and zone names once per connection.
func (m *Manager) resolveHome(ctx context.Context) error {
	if m.homeID != 0 {
		return nil
	}

	homes, err := m.client.Homes(ctx)
	if err != nil {
		return err
	}
	if len(homes) == 0 {
		return errors.New("account has no homes")
	}

	home := homes[0]
	for _, h := range homes {
		if h.Name == m.homeName {
			home = h
			break
		}
	}

	zones, err := m.client.Zones(ctx, home.ID)
	if err != nil {
		return err
	}
	names := make(map[int]string, len(zones))
	for _, z := range zones {
		names[z.ID] = z.Name
	}

	m.homeID = home.ID
	m.zoneNames = names
	m.state.setZones(home.Name, nil, time.Time{})
	m.log.Info("home resolved", "home", home.Name, "zones", len(zones))
	return nil
}

// persistToken hands the rotated refresh token to the save callback.
func (m *Manager) persistToken() {
	tok := m.client.RefreshToken()
	if tok == "" || tok == m.saved {
		return
	}
	m.saved = tok
	if m.onTokens != nil {
		m.onTokens(tok)
	}
}

func (m *Manager) notify() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

func (m *Manager) transition(to ConnState) {
	if m.machine.State() == to {
		return
	}
	if err := m.machine.TransitionTo(to); err != nil {
		m.log.Warn("state transition rejected", "from", m.machine.State(), "to", to)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func zonesChanged(a, b []ZoneSnapshot) bool {
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
