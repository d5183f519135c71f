package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-builder/internal/handlers"
	"github.com/jwebster45206/npc-builder/pkg/edit"
)

const (
	// PollInterval is how often to check the session for a debounced rename
	PollInterval = 50 * time.Millisecond
	// RenameTimeout is max time to wait for a debounced rename to commit
	RenameTimeout = 5 * time.Second
)

// apiError is a non-2xx response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Message)
}

// do sends body as JSON (or raw when it already is bytes) and decodes a 2xx
// response into out. It returns the status code in every case.
func do(ctx context.Context, client *http.Client, method, url string, body any, out any) (int, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case json.RawMessage:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return resp.StatusCode, &apiError{Status: resp.StatusCode, Message: string(data)}
		}
		return resp.StatusCode, &apiError{Status: resp.StatusCode, Message: errorResp.Error}
	}

	if out != nil && len(data) > 0 {
		if raw, ok := out.(*[]byte); ok {
			*raw = data
			return resp.StatusCode, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func sessionURL(baseURL string, id uuid.UUID) string {
	return fmt.Sprintf("%s/v1/sessions/%s", baseURL, id)
}

// CreateSession starts an editing session from a catalog NPC, or from the
// default template when npcID is empty.
func CreateSession(ctx context.Context, client *http.Client, baseURL, npcID string) (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	if _, err := do(ctx, client, http.MethodPost, baseURL+"/v1/sessions", handlers.CreateSessionRequest{NPCID: npcID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSession retrieves the current document of a session
func GetSession(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) (*handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	if _, err := do(ctx, client, http.MethodGet, sessionURL(baseURL, id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportDocument replaces the session's document.
func ImportDocument(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, doc json.RawMessage) (int, error) {
	return do(ctx, client, http.MethodPut, sessionURL(baseURL, id), doc, nil)
}

// PostEdit applies one edit command.
func PostEdit(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, cmd edit.Command) (int, error) {
	return do(ctx, client, http.MethodPost, sessionURL(baseURL, id)+"/edits", cmd, nil)
}

// PostRename sends a keystroke or blur of a parameter name field.
func PostRename(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID, rename RenameStep) (int, error) {
	req := handlers.RenameRequest{Key: rename.Key, Text: rename.Text, Blur: rename.Blur}
	return do(ctx, client, http.MethodPost, sessionURL(baseURL, id)+"/rename", req, nil)
}

// GetValidation runs validation on the session's document.
func GetValidation(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) (*handlers.ValidateResponse, error) {
	var resp handlers.ValidateResponse
	if _, err := do(ctx, client, http.MethodGet, sessionURL(baseURL, id)+"/validate", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetExport downloads the exported JSON.
func GetExport(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) ([]byte, error) {
	var data []byte
	if _, err := do(ctx, client, http.MethodGet, sessionURL(baseURL, id)+"/export", nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteSession ends the session.
func DeleteSession(ctx context.Context, client *http.Client, baseURL string, id uuid.UUID) error {
	_, err := do(ctx, client, http.MethodDelete, sessionURL(baseURL, id), nil, nil)
	return err
}

// PollUntil calls check every PollInterval until it returns nil or the
// timeout passes, returning the last error.
func PollUntil(ctx context.Context, timeout time.Duration, check func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		err := check()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out after %v: %w", timeout, err)
		case <-ticker.C:
		}
	}
}
