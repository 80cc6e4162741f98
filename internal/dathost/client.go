// Package dathost is a thin client for the slice of the DatHost API the
// coordinator needs: staging the server map, creating a match and pushing
// console lines.
package dathost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://dathost.net"

type Config struct {
	// Username and Password are the DatHost account credentials, sent as
	// HTTP basic auth on every request.
	Username string
	Password string

	// BaseURL overrides the API host, mainly for tests.
	BaseURL string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("dathost: credentials required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     httpClient,
		log:      log,
	}, nil
}

// StatusError reports a non-2xx API response.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dathost: %s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// StartMatchRequest mirrors the POST /matches form. Steam ID lists are
// comma separated; team1 plays the T side, team2 the CT side.
type StartMatchRequest struct {
	GameServerID       string
	Team1SteamIDs      string
	Team2SteamIDs      string
	EnablePause        bool
	MatchEndWebhookURL string
	WebhookAuthHeader  string
}

// SetStartingMap stages the map the server boots into for the next match.
func (c *Client) SetStartingMap(ctx context.Context, serverID, mapName string) error {
	form := url.Values{"csgo_settings.mapgroup_start_map": {mapName}}
	return c.submit(ctx, http.MethodPut, "/api/0.1/game-servers/"+serverID, form)
}

func (c *Client) StartMatch(ctx context.Context, req StartMatchRequest) error {
	form := url.Values{
		"game_server_id":  {req.GameServerID},
		"team1_steam_ids": {req.Team1SteamIDs},
		"team2_steam_ids": {req.Team2SteamIDs},
		"enable_pause":    {strconv.FormatBool(req.EnablePause)},
	}
	if req.MatchEndWebhookURL != "" {
		form.Set("match_end_webhook_url", req.MatchEndWebhookURL)
		form.Set("webhook_authorization_header", req.WebhookAuthHeader)
	}
	return c.submit(ctx, http.MethodPost, "/api/0.1/matches", form)
}

func (c *Client) SendConsoleCommand(ctx context.Context, serverID, line string) error {
	form := url.Values{"line": {line}}
	return c.submit(ctx, http.MethodPost, "/api/0.1/game-servers/"+serverID+"/console", form)
}

func (c *Client) submit(ctx context.Context, method, path string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("dathost: build %s %s: %w", method, path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dathost: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	c.log.Debug("dathost request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	return nil
}
