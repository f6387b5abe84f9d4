// FILE: internal/client/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reversi/internal/core"

	"go.uber.org/zap"
)

// Error is a non-2xx answer carrying the server's error body
type Error struct {
	Status int
	core.ErrorResponse
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.ErrorResponse.Error)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Verbose    bool
	log        *zap.SugaredLogger
}

// New builds a client for a server such as "http://localhost:8080".
// Long polls hold the connection, so the HTTP timeout stays above the server wait.
func New(baseURL string, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 45 * time.Second,
		},
		log: log,
	}
}

func (c *Client) SetBaseURL(u string) {
	c.BaseURL = strings.TrimRight(u, "/")
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
		if c.Verbose {
			c.log.Debugw("request body", "body", string(data))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log.Debugw("request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.log.Debugw("api call", "method", method, "path", path, "status", resp.StatusCode, "latency", time.Since(start))
	if c.Verbose && len(data) > 0 {
		c.log.Debugw("response body", "body", string(data))
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(data, &apiErr.ErrorResponse); err != nil || apiErr.Code == "" {
			apiErr.ErrorResponse = core.ErrorResponse{
				Error: strings.TrimSpace(string(data)),
				Code:  http.StatusText(resp.StatusCode),
			}
		}
		return apiErr
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) CreateGame(ctx context.Context, req core.CreateGameRequest) (*core.GameResponse, error) {
	var g core.GameResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/games", req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*core.GameResponse, error) {
	var g core.GameResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGameWithPoll long-polls until the move count differs from moveCount.
// A moveCount of -1 waits for a pending engine turn to settle.
func (c *Client) GetGameWithPoll(ctx context.Context, gameID string, moveCount int) (*core.GameResponse, error) {
	q := url.Values{}
	q.Set("wait", "true")
	q.Set("moveCount", strconv.Itoa(moveCount))

	var g core.GameResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID+"?"+q.Encode(), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/v1/games/"+gameID, nil, nil)
}

// MakeMove places a stone, or asks the engine to play when move is "cccc"
func (c *Client) MakeMove(ctx context.Context, gameID, move string) (*core.GameResponse, error) {
	var g core.GameResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/moves", core.MoveRequest{Move: move}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) UndoMoves(ctx context.Context, gameID string, count int) (*core.GameResponse, error) {
	var g core.GameResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/undo", core.UndoRequest{Count: count}, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) GetBoard(ctx context.Context, gameID string) (*core.BoardResponse, error) {
	var b core.BoardResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/games/"+gameID+"/board", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetShare returns the share path of a game; side may be empty for the side to move
func (c *Client) GetShare(ctx context.Context, gameID, side string) (*core.ShareResponse, error) {
	path := "/api/v1/games/" + gameID + "/share"
	if side != "" {
		path += "?side=" + url.QueryEscape(side)
	}
	var s core.ShareResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Replay opens a share link. An unreplayable token is not an error, see ShareResponse.Valid.
func (c *Client) Replay(ctx context.Context, side, token string) (*core.ShareResponse, error) {
	var s core.ShareResponse
	path := "/api/v1/share/" + url.PathEscape(side) + "/" + url.PathEscape(token)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
