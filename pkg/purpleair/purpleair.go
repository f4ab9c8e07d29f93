// Package purpleair fetches PM2.5 readings for a single station from the
// PurpleAir JSON feed.
package purpleair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultBaseURL = "https://www.purpleair.com/json"
	DefaultTimeout = 30 * time.Second
)

var ErrStatus = errors.New("unexpected response status")

// Sample is the mean PM2.5 concentration over the usable entries of one
// response. PM25 is 0 when Readings is 0.
type Sample struct {
	PM25     float64
	Readings int
	Skipped  int
}

type Client struct {
	client  *http.Client
	station string
	url     string
}

// NewClient builds a client for station. An empty baseURL selects
// DefaultBaseURL and a nil httpClient gets DefaultTimeout.
func NewClient(station, baseURL string, httpClient *http.Client) (*Client, error) {
	if station == "" {
		return nil, errors.New("purpleair: station id is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("purpleair: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("show", station)
	u.RawQuery = q.Encode()

	return &Client{
		client:  httpClient,
		station: station,
		url:     u.String(),
	}, nil
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Station() string {
	return c.station
}

// Fetch retrieves the station's current readings and averages them.
func (c *Client) Fetch(ctx context.Context) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Sample{}, fmt.Errorf("purpleair: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("fetching sensor feed", "url", c.url, "module", "purpleair")
	resp, err := c.client.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("purpleair: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.CopyN(io.Discard, resp.Body, 512)
		return Sample{}, fmt.Errorf("purpleair: %w: %d", ErrStatus, resp.StatusCode)
	}

	s, err := Decode(resp.Body)
	if err != nil {
		return Sample{}, fmt.Errorf("purpleair: %w", err)
	}
	return s, nil
}

type response struct {
	Results []json.RawMessage `json:"results"`
}

type result struct {
	PM25 json.RawMessage `json:"PM2_5Value"`
}

// Decode reads a feed document and averages the PM2_5Value fields of its
// results. Entries without a usable value are counted in Skipped.
func Decode(r io.Reader) (Sample, error) {
	var doc response
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Sample{}, fmt.Errorf("decoding feed: %w", err)
	}

	var s Sample
	sum := 0.0
	for _, v := range values(doc.Results, &s.Skipped) {
		sum += v
		s.Readings++
	}
	if s.Readings > 0 {
		s.PM25 = sum / float64(s.Readings)
	}
	slog.Debug("decoded sensor feed", "results", len(doc.Results), "readings", s.Readings, "skipped", s.Skipped, "module", "purpleair")
	return s, nil
}

// values extracts the numeric readings, incrementing skipped for every entry
// that is not an object or has no usable value.
func values(results []json.RawMessage, skipped *int) []float64 {
	out := make([]float64, 0, len(results))
	for _, raw := range results {
		var r result
		if err := json.Unmarshal(raw, &r); err != nil {
			*skipped++
			continue
		}
		v, ok := parseValue(r.PM25)
		if !ok {
			*skipped++
			continue
		}
		out = append(out, v)
	}
	return out
}

// parseValue accepts a JSON number or a decimal string.
func parseValue(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		raw = []byte(str)
	}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
