package traffilog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"fleet-locator/internal/models"
)

// HTTPClient is implemented by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the upstream endpoints and credentials for the fleet-tracking
// API.
type Config struct {
	LoginURL string
	DataURL  string
	Username string
	Password string

	// RetryWithoutTimeFilter allows one extra data query with the last_time
	// filter dropped when the first query returns no records.
	RetryWithoutTimeFilter bool
}

// Client queries the Traffilog fleet-tracking API: login for a session token
// (cached with a fixed TTL) and last-known vehicle positions.
type Client struct {
	httpClient HTTPClient
	tokens     *TokenCache
	cfg        Config
}

// NewClient creates a fleet-tracking API client.
func NewClient(httpClient HTTPClient, tokens *TokenCache, cfg Config) *Client {
	return &Client{httpClient: httpClient, tokens: tokens, cfg: cfg}
}

type loginResponse struct {
	Token  string `json:"token"`
	Result struct {
		SessionToken string `json:"session_token"`
	} `json:"result"`
	Response struct {
		Properties struct {
			SessionToken string `json:"session_token"`
		} `json:"properties"`
	} `json:"response"`
}

// The upstream login response shape has been observed to vary between
// deployments; extractors are tried in order and the first non-empty value
// wins.
var tokenExtractors = []func(*loginResponse) string{
	func(r *loginResponse) string { return r.Token },
	func(r *loginResponse) string { return r.Response.Properties.SessionToken },
	func(r *loginResponse) string { return r.Result.SessionToken },
}

// Coordinate field names also vary; a localized spelling shows up on some
// deployments.
var (
	latitudeKeys  = []string{"latitude", "latitud"}
	longitudeKeys = []string{"longitude", "longitud"}
)

// Authenticate returns a valid session token, logging in only when the cache
// is empty or expired. The fresh token is cached before returning.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(); ok {
		return token, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	c.tokens.Store(token)
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	payload := map[string]any{
		"action": map[string]any{
			"name": "user_login",
			"parameters": map[string]string{
				"login_name": c.cfg.Username,
				"password":   c.cfg.Password,
			},
		},
	}

	body, err := c.postJSON(ctx, "login", c.cfg.LoginURL, payload, ErrAuth)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: invalid login response: %v", ErrAuth, err)
	}

	for _, extract := range tokenExtractors {
		if token := strings.TrimSpace(extract(&resp)); token != "" {
			return token, nil
		}
	}

	return "", fmt.Errorf("%w: no session token in login response", ErrAuth)
}

type dataResponse struct {
	Response struct {
		Properties struct {
			Data []map[string]any `json:"data"`
		} `json:"properties"`
	} `json:"response"`
}

// LastPosition returns the most recent coordinates reported for the license
// number. When RetryWithoutTimeFilter is enabled and the first query comes
// back empty, exactly one relaxed query is attempted before giving up.
func (c *Client) LastPosition(ctx context.Context, token, licenseNmbr string) (models.Coordinates, error) {
	items, err := c.queryData(ctx, token, licenseNmbr, false)
	if err != nil {
		return models.Coordinates{}, err
	}

	if len(items) == 0 && c.cfg.RetryWithoutTimeFilter {
		items, err = c.queryData(ctx, token, licenseNmbr, true)
		if err != nil {
			return models.Coordinates{}, err
		}
	}

	if len(items) == 0 {
		return models.Coordinates{}, fmt.Errorf("%w for %s", ErrNoPosition, licenseNmbr)
	}

	item := items[0]
	if code, ok := item["error_code"]; ok {
		return models.Coordinates{}, fmt.Errorf("%w: %s (error_code=%v)", ErrVehicleNotFound, licenseNmbr, code)
	}

	lat, err := firstCoordinate(item, latitudeKeys)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%s: latitude: %w", licenseNmbr, err)
	}
	lon, err := firstCoordinate(item, longitudeKeys)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%s: longitude: %w", licenseNmbr, err)
	}

	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}

func (c *Client) queryData(ctx context.Context, token, licenseNmbr string, relaxed bool) ([]map[string]any, error) {
	params := map[string]string{
		"last_time":     "",
		"license_nmbr":  licenseNmbr,
		"group_id":      "",
		"version":       "4",
		"session_token": token,
	}
	if relaxed {
		delete(params, "last_time")
	}

	payload := map[string]any{
		"action": map[string]any{
			"name":       "api_get_data",
			"parameters": []any{params},
		},
	}

	body, err := c.postJSON(ctx, "data", c.cfg.DataURL, payload, nil)
	if err != nil {
		return nil, err
	}

	var resp dataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("traffilog: invalid data response: %w", err)
	}

	return resp.Response.Properties.Data, nil
}

func (c *Client) postJSON(ctx context.Context, op, url string, payload any, cause error) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("traffilog: marshal %s payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("traffilog: build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, URL: url, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: op, URL: url, StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: op, URL: url, StatusCode: resp.StatusCode, Body: string(body), Cause: cause}
	}

	return body, nil
}

// firstCoordinate walks the field-name fallback chain and coerces the first
// present, non-empty value to a float. Upstream sends coordinates either as
// JSON numbers or as strings.
func firstCoordinate(item map[string]any, keys []string) (float64, error) {
	for _, key := range keys {
		raw, ok := item[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("%w: %s=%v", ErrBadCoordinates, key, v)
			}
			return v, nil
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, fmt.Errorf("%w: %s=%q", ErrBadCoordinates, key, v)
			}
			return f, nil
		default:
			return 0, fmt.Errorf("%w: %s=%v", ErrBadCoordinates, key, raw)
		}
	}
	return 0, fmt.Errorf("%w: no coordinate field among %v", ErrBadCoordinates, keys)
}
