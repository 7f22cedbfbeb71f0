package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coop-door-backend/config"
	"coop-door-backend/internal/model"
)

// binEnvelope models the response of a JSON bin service.
type binEnvelope struct {
	Record   json.RawMessage `json:"record"`
	Metadata struct {
		ID      string `json:"id"`
		Private bool   `json:"private"`
	} `json:"metadata"`
}

// binStore keeps the door status in a remote JSON bin addressed by URL.
// Reads use GET {url}/latest, writes PUT the whole record to {url}.
type binStore struct {
	url       string
	masterKey string
	client    *http.Client
}

// NewBinStore creates a store backed by a remote JSON bin.
func NewBinStore(cfg config.BinConfig) (Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("bin url must be set")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid bin url %q: %w", cfg.URL, err)
	}

	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil || proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid bin proxy url %q", cfg.HTTPProxy)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &binStore{
		url:       strings.TrimRight(cfg.URL, "/"),
		masterKey: cfg.MasterKey,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}, nil
}

func (s *binStore) ReadStatus(ctx context.Context) (model.DoorStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"/latest", nil)
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to create request: %w", err)
	}

	env, err := s.do(req)
	if err != nil {
		return model.DoorStatus{}, err
	}

	status, err := model.UnmarshalDoorStatus(env.Record)
	if err != nil {
		return model.DoorStatus{}, corrupt(err)
	}
	return status, nil
}

func (s *binStore) ReplaceStatus(ctx context.Context, status model.DoorStatus) (model.DoorStatus, error) {
	jsonBody, err := json.Marshal(status)
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := s.do(req); err != nil {
		return model.DoorStatus{}, err
	}
	return status, nil
}

func (s *binStore) do(req *http.Request) (*binEnvelope, error) {
	if s.masterKey != "" {
		req.Header.Set("X-Master-Key", s.masterKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env binEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, corrupt(fmt.Errorf("failed to unmarshal bin response: %w", err))
	}
	return &env, nil
}
