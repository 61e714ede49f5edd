// Package hue polls a Philips Hue bridge for room and light state and
// sends light commands back.
package hue

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrLinkButtonNotPressed is returned by Pair until the physical
// button on the bridge has been pressed.
var ErrLinkButtonNotPressed = errors.New("bridge link button not pressed")

// resourceResponse is the CLIP v2 envelope for /clip/v2/resource/*.
type resourceResponse struct {
	Errors []struct {
		Description string `json:"description"`
	} `json:"errors"`
	Data []json.RawMessage `json:"data"`
}

// roomResource is a CLIP v2 room.
type roomResource struct {
	ID       string `json:"id"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Children []struct {
		RID   string `json:"rid"`
		RType string `json:"rtype"`
	} `json:"children"`
	Services []struct {
		RID   string `json:"rid"`
		RType string `json:"rtype"`
	} `json:"services"`
}

// groupedLightResource is a CLIP v2 grouped_light.
type groupedLightResource struct {
	ID string `json:"id"`
	On struct {
		On bool `json:"on"`
	} `json:"on"`
	Dimming struct {
		Brightness float64 `json:"brightness"`
	} `json:"dimming"`
}

// Room is one room with its aggregate light state.
type Room struct {
	ID             string
	Name           string
	GroupedLightID string
	On             bool
	Brightness     float64 // percent, 0..100
	DeviceCount    int
}

// Client talks to one Hue bridge over the CLIP v2 REST API.
type Client struct {
	host string
	http *http.Client

	// mu guards appKey; pairing rewrites it while the poller reads.
	mu     sync.Mutex
	appKey string
}

// NewClient returns a client for the bridge at host. The bridge serves
// TLS signed by its own CA, so certificate verification is skipped.
func NewClient(host, appKey string) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Client{
		host:   host,
		appKey: appKey,
		http:   &http.Client{Timeout: 10 * time.Second, Transport: transport},
	}
}

// SetAppKey replaces the application key after pairing.
func (c *Client) SetAppKey(key string) {
	c.mu.Lock()
	c.appKey = key
	c.mu.Unlock()
}

func (c *Client) key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appKey
}

// Probe checks that a Hue bridge answers at the configured host. The
// /api/0/config endpoint needs no application key.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("https://%s/api/0/config", c.host), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("probe bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %s", resp.Status)
	}

	var cfg struct {
		Name     string `json:"name"`
		BridgeID string `json:"bridgeid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return fmt.Errorf("decode bridge config: %w", err)
	}
	if cfg.BridgeID == "" {
		return fmt.Errorf("host %s does not look like a Hue bridge", c.host)
	}
	return nil
}

// Pair requests an application key from the bridge. Fails with
// ErrLinkButtonNotPressed until the bridge button is pressed, so
// callers poll it.
func (c *Client) Pair(ctx context.Context, deviceType string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"devicetype":        deviceType,
		"generateclientkey": true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal pair request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("https://%s/api", c.host), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pair with bridge: %w", err)
	}
	defer resp.Body.Close()

	var results []struct {
		Success struct {
			Username string `json:"username"`
		} `json:"success"`
		Error struct {
			Type        int    `json:"type"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("decode pair response: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("empty pair response")
	}

	r := results[0]
	if r.Success.Username != "" {
		return r.Success.Username, nil
	}
	// Error type 101 is the unpressed link button.
	if r.Error.Type == 101 {
		return "", ErrLinkButtonNotPressed
	}
	return "", fmt.Errorf("bridge error: %s", r.Error.Description)
}

// Rooms fetches all rooms joined with their grouped-light state.
func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	var roomsRaw resourceResponse
	if err := c.get(ctx, "/clip/v2/resource/room", &roomsRaw); err != nil {
		return nil, err
	}
	var groupsRaw resourceResponse
	if err := c.get(ctx, "/clip/v2/resource/grouped_light", &groupsRaw); err != nil {
		return nil, err
	}

	groups := make(map[string]groupedLightResource, len(groupsRaw.Data))
	for _, raw := range groupsRaw.Data {
		var g groupedLightResource
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, fmt.Errorf("decode grouped light: %w", err)
		}
		groups[g.ID] = g
	}

	rooms := make([]Room, 0, len(roomsRaw.Data))
	for _, raw := range roomsRaw.Data {
		var r roomResource
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode room: %w", err)
		}

		room := Room{
			ID:          r.ID,
			Name:        r.Metadata.Name,
			DeviceCount: len(r.Children),
		}
		for _, svc := range r.Services {
			if svc.RType == "grouped_light" {
				room.GroupedLightID = svc.RID
				if g, ok := groups[svc.RID]; ok {
					room.On = g.On.On
					room.Brightness = g.Dimming.Brightness
				}
				break
			}
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// SetGroupOn switches a room's grouped light on or off.
func (c *Client) SetGroupOn(ctx context.Context, groupedLightID string, on bool) error {
	body, err := json.Marshal(map[string]any{
		"on": map[string]bool{"on": on},
	})
	if err != nil {
		return fmt.Errorf("marshal light command: %w", err)
	}

	path := fmt.Sprintf("/clip/v2/resource/grouped_light/%s", groupedLightID)
	req, err := http.NewRequestWithContext(ctx, "PUT", "https://"+c.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("hue-application-key", c.key())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send light command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %s", resp.Status)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out *resourceResponse) error {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://"+c.host+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("hue-application-key", c.key())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %s for %s", resp.Status, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("bridge error: %s", out.Errors[0].Description)
	}
	return nil
}
