package adapter

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/passring/passring/internal/utils"
	"github.com/passring/passring/models"
)

// hashHeader carries the HMAC-SHA256 integrity signature of the request body.
const hashHeader = "HashSHA256"

type HTTPClientConfig struct {
	BaseURL string
	HashKey string
	Timeout time.Duration
}

type httpServerAdapter struct {
	client  *resty.Client
	hashKey string

	mu    sync.RWMutex
	token string
}

// NewHTTPServerAdapter builds a resty-backed [ServerAdapter] pointed at the
// sync authority base URL.
func NewHTTPServerAdapter(cfg HTTPClientConfig) ServerAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	if cfg.HashKey != "" {
		utils.InitHasherPool(cfg.HashKey)
	}

	return &httpServerAdapter{client: cli, hashKey: cfg.HashKey}
}

func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpServerAdapter) Push(ctx context.Context, req models.PushRequest) (models.PushResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.PushResult{}, fmt.Errorf("encode push request: %w", err)
	}

	r, err := h.authedRequest(ctx)
	if err != nil {
		return models.PushResult{}, err
	}

	r.SetHeader("Content-Type", "application/json").
		SetBody(body)
	if h.hashKey != "" {
		r.SetHeader(hashHeader, hex.EncodeToString(utils.Hash(body)))
	}

	resp, err := r.Post("/api/sync/push")
	if err != nil {
		return models.PushResult{}, fmt.Errorf("%w: push request: %w", ErrOffline, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		// A 409 body may carry the remote's current state; surface it as a
		// conflict result so resolution can install the remote side.
		if result, ok := decodeConflictBody(resp.Body()); ok {
			return result, nil
		}
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResult{}, err
	}

	var result models.PushResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.PushResult{}, fmt.Errorf("decode push response: %w", err)
	}

	return result, nil
}

// decodeConflictBody recovers the remote's conflict state from a 409 body.
// A body without the conflict shape reports false and the caller falls back
// to the bare ErrVersionConflict sentinel.
func decodeConflictBody(body []byte) (models.PushResult, bool) {
	var result models.PushResult
	if err := json.Unmarshal(body, &result); err != nil {
		return models.PushResult{}, false
	}
	if !result.Conflict && result.CurrentVersion == 0 && len(result.CurrentPayload) == 0 {
		return models.PushResult{}, false
	}
	result.Accepted = false
	result.Conflict = true
	return result, true
}

func (h *httpServerAdapter) PullSnapshot(ctx context.Context) (models.Snapshot, error) {
	r, err := h.authedRequest(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	resp, err := r.Get("/api/sync/snapshot")
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: snapshot request: %w", ErrOffline, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Snapshot{}, err
	}

	var snapshot models.Snapshot
	if err = json.Unmarshal(resp.Body(), &snapshot); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode snapshot response: %w", err)
	}

	return snapshot, nil
}

// authedRequest prepares an outbound request carrying the bearer token. An
// expired token fails fast with ErrUnauthorized instead of wasting a round
// trip on a guaranteed 401.
func (h *httpServerAdapter) authedRequest(ctx context.Context) (*resty.Request, error) {
	req := h.client.R().SetContext(ctx)

	token := h.Token()
	if token == "" {
		return nil, fmt.Errorf("%w: no bearer token set", ErrUnauthorized)
	}
	if err := utils.CheckTokenFreshness(token, time.Now()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	req.SetHeader("Authorization", "Bearer "+token)
	return req, nil
}
