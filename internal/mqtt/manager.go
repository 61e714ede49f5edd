// Package mqtt publishes panel telemetry to a broker and accepts a
// small set of remote commands. Discovery documents make the panel
// appear in Home Assistant without manual configuration.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/paperhome/paperhome/internal/statemachine"
)

// ConnState tracks the broker connection lifecycle.
type ConnState uint8

const (
	// StateDisconnected means no broker session exists.
	StateDisconnected ConnState = iota
	// StateConnecting means a connect or reconnect is in flight.
	StateConnecting
	// StateConnected means the session is up.
	StateConnected
)

// String returns a short name for logs and screens.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Telemetry is the panel state published on the state topic.
type Telemetry struct {
	CO2PPM       int     `json:"co2_ppm"`
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	PressureHPa  float64 `json:"pressure_hpa"`
	IAQIndex     float64 `json:"iaq_index"`
	IAQBand      string  `json:"iaq_band"`
	BatteryPct   int     `json:"battery_pct"`
	Charging     bool    `json:"charging"`
	RSSIdBm      int     `json:"rssi_dbm"`
}

// Options configures the broker session.
type Options struct {
	Broker          string
	ClientID        string
	Username        string
	Password        string
	BaseTopic       string
	DiscoveryPrefix string
	Version         string
}

// Manager owns the paho client. Connection state is driven by the
// client's own handlers, so reconnects keep the availability topic and
// command subscription alive.
type Manager struct {
	opts Options
	log  *slog.Logger

	client  paho.Client
	machine *statemachine.Machine[ConnState]

	onForceRefresh func()
}

// NewManager returns an unstarted manager.
func NewManager(opts Options, log *slog.Logger) *Manager {
	machine := statemachine.New("mqtt", StateDisconnected)
	machine.Allow(StateDisconnected, StateConnecting)
	machine.Allow(StateConnecting, StateConnected, StateDisconnected)
	machine.Allow(StateConnected, StateConnecting, StateDisconnected)

	return &Manager{
		opts:    opts,
		log:     log.With("module", "mqtt"),
		machine: machine,
	}
}

// OnForceRefresh registers a callback for the force_refresh command.
// Must be called before Start.
func (m *Manager) OnForceRefresh(fn func()) {
	m.onForceRefresh = fn
}

// Start connects to the broker. The connect keeps retrying in the
// background, so a panel booting before its broker still comes up.
func (m *Manager) Start() error {
	if m.opts.Broker == "" {
		return fmt.Errorf("no broker configured")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(m.opts.Broker)
	opts.SetClientID(m.opts.ClientID)
	opts.SetUsername(m.opts.Username)
	opts.SetPassword(m.opts.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetWill(m.availabilityTopic(), "offline", 1, true)

	opts.SetOnConnectHandler(func(c paho.Client) {
		m.transition(StateConnected)
		m.log.Info("connected", "broker", m.opts.Broker)

		c.Publish(m.availabilityTopic(), 1, true, "online")
		m.publishDiscovery(c)
		m.subscribeCommands(c)
	})
	opts.SetConnectionLostHandler(func(c paho.Client, err error) {
		m.transition(StateConnecting)
		m.log.Warn("connection lost", "err", err)
	})
	opts.SetReconnectingHandler(func(c paho.Client, o *paho.ClientOptions) {
		m.transition(StateConnecting)
	})

	m.client = paho.NewClient(opts)
	m.transition(StateConnecting)
	m.client.Connect()
	return nil
}

// Stop marks the panel offline and tears the session down.
func (m *Manager) Stop() {
	if m.client == nil {
		return
	}
	if m.client.IsConnected() {
		token := m.client.Publish(m.availabilityTopic(), 1, true, "offline")
		token.WaitTimeout(2 * time.Second)
	}
	m.client.Disconnect(250)
	m.transition(StateDisconnected)
}

// ConnState returns the current connection state.
func (m *Manager) ConnState() ConnState {
	return m.machine.State()
}

// Connected reports whether the broker session is up.
func (m *Manager) Connected() bool {
	return m.client != nil && m.client.IsConnectionOpen()
}

// PublishTelemetry sends the panel state as one JSON document.
func (m *Manager) PublishTelemetry(t Telemetry) error {
	if !m.Connected() {
		return nil
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	token := m.client.Publish(m.stateTopic(), 1, false, payload)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return fmt.Errorf("publish telemetry: %w", token.Error())
	}
	return nil
}

func (m *Manager) availabilityTopic() string {
	return m.opts.BaseTopic + "/status"
}

func (m *Manager) stateTopic() string {
	return m.opts.BaseTopic + "/state"
}

func (m *Manager) commandTopic() string {
	return m.opts.BaseTopic + "/command/#"
}

func (m *Manager) subscribeCommands(c paho.Client) {
	token := c.Subscribe(m.commandTopic(), 1, func(_ paho.Client, msg paho.Message) {
		m.handleCommand(msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		m.log.Error("subscribe commands", "err", token.Error())
	}
}

func (m *Manager) handleCommand(topic string, payload []byte) {
	m.log.Info("command received", "topic", topic, "payload", string(payload))
	switch topic {
	case m.opts.BaseTopic + "/command/force_refresh":
		if m.onForceRefresh != nil {
			m.onForceRefresh()
		}
	default:
		m.log.Warn("unknown command topic", "topic", topic)
	}
}

// deviceInfo is the Home Assistant device block shared by every
// discovered entity, so they group under one device.
func (m *Manager) deviceInfo() map[string]any {
	return map[string]any{
		"identifiers":  []string{m.opts.ClientID},
		"name":         "PaperHome Panel",
		"manufacturer": "PaperHome",
		"model":        "E-Paper Touchpoint",
		"sw_version":   m.opts.Version,
	}
}

// publishDiscovery announces the panel's sensors and commands. Runs on
// every (re)connect; config topics are retained so this is idempotent.
func (m *Manager) publishDiscovery(c paho.Client) {
	type sensor struct {
		key   string
		name  string
		unit  string
		class string
		tmpl  string
	}
	sensors := []sensor{
		{"co2", "CO2", "ppm", "carbon_dioxide", "{{ value_json.co2_ppm }}"},
		{"temperature", "Temperature", "°C", "temperature", "{{ value_json.temperature_c | round(1) }}"},
		{"humidity", "Humidity", "%", "humidity", "{{ value_json.humidity_pct | round(0) }}"},
		{"pressure", "Pressure", "hPa", "atmospheric_pressure", "{{ value_json.pressure_hpa | round(1) }}"},
		{"iaq", "Air Quality Index", "", "aqi", "{{ value_json.iaq_index | round(0) }}"},
		{"battery", "Battery", "%", "battery", "{{ value_json.battery_pct }}"},
	}

	for _, s := range sensors {
		payload := map[string]any{
			"name":               s.name,
			"unique_id":          fmt.Sprintf("%s_%s", m.opts.ClientID, s.key),
			"state_topic":        m.stateTopic(),
			"value_template":     s.tmpl,
			"availability_topic": m.availabilityTopic(),
			"device":             m.deviceInfo(),
		}
		if s.unit != "" {
			payload["unit_of_measurement"] = s.unit
		}
		if s.class != "" {
			payload["device_class"] = s.class
		}
		topic := fmt.Sprintf("%s/sensor/%s/%s/config", m.opts.DiscoveryPrefix, m.opts.ClientID, s.key)
		m.publishJSON(c, topic, payload)
	}

	refresh := map[string]any{
		"name":               "Force Refresh",
		"unique_id":          m.opts.ClientID + "_force_refresh",
		"command_topic":      m.opts.BaseTopic + "/command/force_refresh",
		"payload_press":      "press",
		"availability_topic": m.availabilityTopic(),
		"device":             m.deviceInfo(),
	}
	topic := fmt.Sprintf("%s/button/%s/force_refresh/config", m.opts.DiscoveryPrefix, m.opts.ClientID)
	m.publishJSON(c, topic, refresh)
}

func (m *Manager) publishJSON(c paho.Client, topic string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("marshal discovery", "topic", topic, "err", err)
		return
	}
	c.Publish(topic, 1, true, data)
}

func (m *Manager) transition(to ConnState) {
	if err := m.machine.TransitionTo(to); err != nil {
		m.log.Warn("state transition rejected", "to", to)
	}
}
