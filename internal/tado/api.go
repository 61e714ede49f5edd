// Package tado polls the Tado cloud API for heating zone state using
// the OAuth2 device-code flow.
package tado

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultClientID is Tado's published client id for device-code auth.
const DefaultClientID = "1bb50063-6b0c-4d11-bd99-387f4a91cc46"

const (
	defaultAuthBase = "https://login.tado.com"
	defaultAPIBase  = "https://my.tado.com"
)

// ErrAuthorizationPending is returned by PollDeviceToken while the
// user has not yet approved the device code in a browser.
var ErrAuthorizationPending = errors.New("authorization pending")

// ErrNotAuthorized is returned when no usable token is available.
var ErrNotAuthorized = errors.New("not authorized")

// DeviceAuth is one pending device-code grant, shown on screen so the
// user can approve it from a phone.
type DeviceAuth struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        time.Duration
	ExpiresAt       time.Time
}

// Home identifies one Tado home.
type Home struct {
	ID   int
	Name string
}

// Zone is one heating zone.
type Zone struct {
	ID   int
	Name string
	Type string
}

// ZoneState is the live climate state of one zone.
type ZoneState struct {
	ZoneID        int
	Heating       bool
	TargetCelsius float64
	InsideCelsius float64
	Humidity      float64
	HeatingPower  float64 // percent, 0..100
}

// zoneStateResource mirrors the wire shape of a zone state.
type zoneStateResource struct {
	Setting struct {
		Power       string `json:"power"`
		Temperature struct {
			Celsius float64 `json:"celsius"`
		} `json:"temperature"`
	} `json:"setting"`
	ActivityDataPoints struct {
		HeatingPower struct {
			Percentage float64 `json:"percentage"`
		} `json:"heatingPower"`
	} `json:"activityDataPoints"`
	SensorDataPoints struct {
		InsideTemperature struct {
			Celsius float64 `json:"celsius"`
		} `json:"insideTemperature"`
		Humidity struct {
			Percentage float64 `json:"percentage"`
		} `json:"humidity"`
	} `json:"sensorDataPoints"`
}

// Client talks to the Tado cloud. Token state is internal; callers
// read RefreshToken after auth events to persist the rotated value.
type Client struct {
	clientID string
	authBase string
	apiBase  string
	http     *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewClient returns a client. refreshToken may be empty, in which case
// the device-code flow has to run before any API call succeeds.
func NewClient(clientID, refreshToken string) *Client {
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &Client{
		clientID:     clientID,
		authBase:     defaultAuthBase,
		apiBase:      defaultAPIBase,
		refreshToken: refreshToken,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Authorized reports whether a refresh token is on hand.
func (c *Client) Authorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken != ""
}

// RefreshToken returns the current refresh token. Tado rotates it on
// every refresh, so persist the value after each successful call.
func (c *Client) RefreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken
}

// DeviceAuthorize starts a device-code grant.
func (c *Client) DeviceAuthorize(ctx context.Context) (DeviceAuth, error) {
	form := url.Values{
		"client_id": {c.clientID},
		"scope":     {"offline_access"},
	}

	var out struct {
		DeviceCode              string `json:"device_code"`
		UserCode                string `json:"user_code"`
		VerificationURIComplete string `json:"verification_uri_complete"`
		ExpiresIn               int    `json:"expires_in"`
		Interval                int    `json:"interval"`
	}
	if err := c.postForm(ctx, c.authBase+"/oauth2/device_authorize", form, &out); err != nil {
		return DeviceAuth{}, fmt.Errorf("start device grant: %w", err)
	}

	interval := time.Duration(out.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return DeviceAuth{
		DeviceCode:      out.DeviceCode,
		UserCode:        out.UserCode,
		VerificationURI: out.VerificationURIComplete,
		Interval:        interval,
		ExpiresAt:       time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// PollDeviceToken asks whether the grant was approved. Returns
// ErrAuthorizationPending until the user confirms the code.
func (c *Client) PollDeviceToken(ctx context.Context, deviceCode string) error {
	form := url.Values{
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}
	return c.fetchToken(ctx, form)
}

// Refresh exchanges the refresh token for a fresh access token. Tado
// hands back a new refresh token with every exchange.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	rt := c.refreshToken
	c.mu.Unlock()
	if rt == "" {
		return ErrNotAuthorized
	}

	form := url.Values{
		"client_id":     {c.clientID},
		"refresh_token": {rt},
		"grant_type":    {"refresh_token"},
	}
	return c.fetchToken(ctx, form)
}

func (c *Client) fetchToken(ctx context.Context, form url.Values) error {
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
	}
	if err := c.postForm(ctx, c.authBase+"/oauth2/token", form, &out); err != nil {
		return err
	}
	switch out.Error {
	case "":
	case "authorization_pending", "slow_down":
		return ErrAuthorizationPending
	case "invalid_grant", "expired_token":
		return fmt.Errorf("%s: %w", out.Error, ErrNotAuthorized)
	default:
		return fmt.Errorf("token endpoint: %s", out.Error)
	}

	c.mu.Lock()
	c.accessToken = out.AccessToken
	c.refreshToken = out.RefreshToken
	// Renew a little early so in-flight requests never race expiry.
	c.expiresAt = time.Now().Add(time.Duration(out.ExpiresIn)*time.Second - 30*time.Second)
	c.mu.Unlock()
	return nil
}

// token returns a valid access token, refreshing when needed.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok, exp := c.accessToken, c.expiresAt
	c.mu.Unlock()

	if tok != "" && time.Now().Before(exp) {
		return tok, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, nil
}

// Homes lists the homes of the authorized account.
func (c *Client) Homes(ctx context.Context) ([]Home, error) {
	var out struct {
		Homes []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"homes"`
	}
	if err := c.getJSON(ctx, "/api/v2/me", &out); err != nil {
		return nil, err
	}
	homes := make([]Home, 0, len(out.Homes))
	for _, h := range out.Homes {
		homes = append(homes, Home{ID: h.ID, Name: h.Name})
	}
	return homes, nil
}

// Zones lists the zones of a home.
func (c *Client) Zones(ctx context.Context, homeID int) ([]Zone, error) {
	var out []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v2/homes/%d/zones", homeID), &out); err != nil {
		return nil, err
	}
	zones := make([]Zone, 0, len(out))
	for _, z := range out {
		zones = append(zones, Zone{ID: z.ID, Name: z.Name, Type: z.Type})
	}
	return zones, nil
}

// ZoneStates fetches the state of every zone in one request.
func (c *Client) ZoneStates(ctx context.Context, homeID int) (map[int]ZoneState, error) {
	var out struct {
		ZoneStates map[string]zoneStateResource `json:"zoneStates"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v2/homes/%d/zoneStates", homeID), &out); err != nil {
		return nil, err
	}

	states := make(map[int]ZoneState, len(out.ZoneStates))
	for key, zs := range out.ZoneStates {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("zone id %q: %w", key, err)
		}
		states[id] = ZoneState{
			ZoneID:        id,
			Heating:       zs.Setting.Power == "ON",
			TargetCelsius: zs.Setting.Temperature.Celsius,
			InsideCelsius: zs.SensorDataPoints.InsideTemperature.Celsius,
			Humidity:      zs.SensorDataPoints.Humidity.Percentage,
			HeatingPower:  zs.ActivityDataPoints.HeatingPower.Percentage,
		}
	}
	return states, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", resp.Status, ErrNotAuthorized)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tado returned %s for %s", resp.Status, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	// OAuth error responses arrive with 4xx status and a JSON body, so
	// decode before judging the status code.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	return nil
}
