// Package remote is a client for a versioned single-file document store
// exposed through a GitHub-style contents API. Reads return the content and
// its SHA; writes are conditional on the last-known SHA, so a stale SHA
// surfaces as a conflict rather than a lost update.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/davidmreis/bizbook/internal/errs"
)

type Config struct {
	// APIBase is the root of the content API, e.g. https://api.github.com.
	APIBase string
	Owner   string
	Repo    string
	Timeout time.Duration
}

// Store talks to one repository of the content API. The bearer credential
// is installed after vault login; reads work without it so the vault record
// itself can be fetched before any credential exists.
type Store struct {
	api    string
	owner  string
	repo   string
	client *http.Client

	mu    sync.RWMutex
	token string
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Store{
		api:    strings.TrimSuffix(cfg.APIBase, "/"),
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		client: &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer credential used on subsequent requests.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *Store) bearer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Document is a file's content plus the SHA identifying that exact content.
type Document struct {
	Content []byte
	SHA     string
}

func (s *Store) repoURL(parts ...string) string {
	return s.api + "/repos/" + s.owner + "/" + s.repo + "/" + strings.Join(parts, "/")
}

func (s *Store) do(ctx context.Context, method, rawURL string, body any, token string) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}

	return resp, nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return errs.ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errs.ErrAuth
	case code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		return errs.ErrConflict
	default:
		return fmt.Errorf("%w: unexpected status %d", errs.ErrNetwork, code)
	}
}

// Read fetches a file from the given branch.
func (s *Store) Read(ctx context.Context, branch, path string) (Document, error) {
	u := s.repoURL("contents", path) + "?ref=" + url.QueryEscape(branch)

	resp, err := s.do(ctx, http.MethodGet, u, nil, s.bearer())
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("reading %s: %w", path, statusError(resp.StatusCode))
	}

	var payload struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Document{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	// The API wraps base64 payloads in newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return Document{}, fmt.Errorf("decoding %s content: %w", path, err)
	}

	return Document{Content: raw, SHA: payload.SHA}, nil
}

// Write stores content at path on the branch. A non-empty expectedSHA makes
// the write conditional: if the remote content changed since that SHA was
// read, the write fails with a conflict. An empty expectedSHA is a blind
// write, used only for first-time creation.
func (s *Store) Write(ctx context.Context, branch, path string, content []byte, expectedSHA, message string) (string, error) {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  branch,
	}
	if expectedSHA != "" {
		body["sha"] = expectedSHA
	}

	resp, err := s.do(ctx, http.MethodPut, s.repoURL("contents", path), body, s.bearer())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("writing %s: %w", path, statusError(resp.StatusCode))
	}

	var payload struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding write response for %s: %w", path, err)
	}

	return payload.Content.SHA, nil
}

// EnsureBranch creates the branch from the default branch's tip if it does
// not exist. Idempotent.
func (s *Store) EnsureBranch(ctx context.Context, name, defaultBranch string) error {
	resp, err := s.do(ctx, http.MethodGet, s.repoURL("git", "refs", "heads", name), nil, s.bearer())
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	if resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("checking branch %s: %w", name, statusError(resp.StatusCode))
	}

	base, err := s.do(ctx, http.MethodGet, s.repoURL("git", "refs", "heads", defaultBranch), nil, s.bearer())
	if err != nil {
		return err
	}
	defer base.Body.Close()

	if base.StatusCode != http.StatusOK {
		return fmt.Errorf("resolving default branch %s: %w", defaultBranch, statusError(base.StatusCode))
	}

	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := json.NewDecoder(base.Body).Decode(&ref); err != nil {
		return fmt.Errorf("decoding ref for %s: %w", defaultBranch, err)
	}

	created, err := s.do(ctx, http.MethodPost, s.repoURL("git", "refs"), map[string]string{
		"ref": "refs/heads/" + name,
		"sha": ref.Object.SHA,
	}, s.bearer())
	if err != nil {
		return err
	}
	created.Body.Close()

	if created.StatusCode != http.StatusCreated && created.StatusCode != http.StatusOK {
		return fmt.Errorf("creating branch %s: %w", name, statusError(created.StatusCode))
	}

	return nil
}

// Verify checks a credential against the API's identity endpoint without
// installing it on the store.
func (s *Store) Verify(ctx context.Context, token string) error {
	resp, err := s.do(ctx, http.MethodGet, s.api+"/user", nil, token)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verifying credential: %w", statusError(resp.StatusCode))
	}

	return nil
}
