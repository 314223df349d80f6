package room

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wfunc/twilightsync/game"
)

// Lister queries the room discovery endpoints.
type Lister interface {
	ListRooms(ctx context.Context) ([]game.Room, error)
	CreateRoom(ctx context.Context) (string, error)
}

// TransportError is a failed room query or a failed emit. Callers log it
// and keep their stale data.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPLister talks to GET /api/rooms and POST /api/create_room.
type HTTPLister struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLister(baseURL string, client *http.Client) *HTTPLister {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPLister{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (l *HTTPLister) ListRooms(ctx context.Context) ([]game.Room, error) {
	var rooms []game.Room
	if err := l.do(ctx, http.MethodGet, "/api/rooms", &rooms); err != nil {
		return nil, &TransportError{Op: "list rooms", Err: err}
	}
	return rooms, nil
}

func (l *HTTPLister) CreateRoom(ctx context.Context) (string, error) {
	var resp struct {
		RoomID string `json:"room_id"`
	}
	if err := l.do(ctx, http.MethodPost, "/api/create_room", &resp); err != nil {
		return "", &TransportError{Op: "create room", Err: err}
	}
	if resp.RoomID == "" {
		return "", &TransportError{Op: "create room", Err: fmt.Errorf("response without room_id")}
	}
	return resp.RoomID, nil
}

func (l *HTTPLister) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
