package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound means the provider does not know the postal code.
var ErrNotFound = errors.New("postal code not found")

// ErrNoCoordinates means the provider knows the code but has no location for it.
var ErrNoCoordinates = errors.New("postal code has no coordinates")

// Client looks up postal codes on BrasilAPI.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type cepResponse struct {
	Cep          string `json:"cep"`
	State        string `json:"state"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	Location     struct {
		Type        string `json:"type"`
		Coordinates struct {
			Latitude  coordinate `json:"latitude"`
			Longitude coordinate `json:"longitude"`
		} `json:"coordinates"`
	} `json:"location"`
}

// coordinate accepts numbers and numeric strings; blanks stay unset.
type coordinate struct {
	value float64
	set   bool
}

func (c *coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", s)
		}
		c.value, c.set = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.value, c.set = v, true
	return nil
}

// Lookup resolves one 8-digit postal code to coordinates.
func (c *Client) Lookup(ctx context.Context, code string) (Entry, error) {
	url := fmt.Sprintf("%s/api/cep/v2/%s", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Entry{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Entry{}, fmt.Errorf("BrasilAPI error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out cepResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Entry{}, fmt.Errorf("failed to decode response: %w", err)
	}
	lat, lon := out.Location.Coordinates.Latitude, out.Location.Coordinates.Longitude
	if !lat.set || !lon.set {
		return Entry{}, ErrNoCoordinates
	}
	return Entry{PostalCode: code, Latitude: lat.value, Longitude: lon.value}, nil
}
