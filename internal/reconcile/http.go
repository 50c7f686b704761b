package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ytqm/ytqm/internal/models"
)

// HTTPTransport submits reorder intents to a room over the HTTP API.
type HTTPTransport struct {
	BaseURL string
	RoomID  uuid.UUID

	// Token authorizes mutations on owned rooms; empty for open rooms.
	Token string

	Client *http.Client
}

func (t *HTTPTransport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (t *HTTPTransport) do(req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	resp, err := t.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Conflict replies still carry a decodable resolver result; only
	// statuses outside the reorder contract are transport errors.
	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict, http.StatusBadRequest:
		return json.NewDecoder(resp.Body).Decode(out)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// Reorder posts the intent and returns the resolver's structured reply.
func (t *HTTPTransport) Reorder(ctx context.Context, reorder ReorderRequest) (*ReorderResponse, error) {
	body, err := json.Marshal(reorder)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/rooms/%s/reorder", t.BaseURL, t.RoomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp ReorderResponse
	if err := t.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch pulls the authoritative room snapshot.
func (t *HTTPTransport) Fetch(ctx context.Context) (*models.Snapshot, error) {
	url := fmt.Sprintf("%s/rooms/%s", t.BaseURL, t.RoomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
