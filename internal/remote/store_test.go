package remote_test

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmreis/bizbook/internal/errs"
	"github.com/davidmreis/bizbook/internal/remote"
)

// contentsAPI is an in-memory stand-in for the remote content API: files
// keyed by branch and path, SHAs derived from content so identical content
// hashes identically.
type contentsAPI struct {
	mu       sync.Mutex
	files    map[string]string // branch:path -> content
	branches map[string]bool
	token    string // non-empty: required on writes and /user
}

func contentSHA(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (a *contentsAPI) authorized(r *http.Request) bool {
	return a.token == "" || r.Header.Get("Authorization") == "Bearer "+a.token
}

func (a *contentsAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()

		switch {
		case r.URL.Path == "/user":
			if !a.authorized(r) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			_ = json.NewEncoder(w).Encode(map[string]string{"login": "bizbook"})

		case strings.HasPrefix(r.URL.Path, "/repos/owner/repo/contents/"):
			path := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")
			a.contents(w, r, path)

		case strings.HasPrefix(r.URL.Path, "/repos/owner/repo/git/refs/heads/"):
			name := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/git/refs/heads/")
			if !a.branches[name] {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			_ = json.NewEncoder(w).Encode(map[string]any{
				"ref":    "refs/heads/" + name,
				"object": map[string]string{"sha": contentSHA(name)},
			})

		case r.URL.Path == "/repos/owner/repo/git/refs" && r.Method == http.MethodPost:
			var body struct {
				Ref string `json:"ref"`
				SHA string `json:"sha"`
			}

			_ = json.NewDecoder(r.Body).Decode(&body)
			a.branches[strings.TrimPrefix(body.Ref, "refs/heads/")] = true
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"ref": body.Ref})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (a *contentsAPI) contents(w http.ResponseWriter, r *http.Request, path string) {
	switch r.Method {
	case http.MethodGet:
		key := r.URL.Query().Get("ref") + ":" + path

		content, ok := a.files[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]string{
			"content": base64.StdEncoding.EncodeToString([]byte(content)),
			"sha":     contentSHA(content),
		})

	case http.MethodPut:
		if !a.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}

		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		key := body.Branch + ":" + path

		if existing, ok := a.files[key]; ok && body.SHA != contentSHA(existing) {
			w.WriteHeader(http.StatusConflict)
			return
		}

		raw, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}

		a.files[key] = string(raw)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"sha": contentSHA(string(raw))},
		})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, api *contentsAPI) *remote.Store {
	t.Helper()

	if api.files == nil {
		api.files = make(map[string]string)
	}

	if api.branches == nil {
		api.branches = map[string]bool{"main": true}
	}

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	return remote.New(remote.Config{APIBase: srv.URL, Owner: "owner", Repo: "repo"})
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t, &contentsAPI{})
	ctx := context.Background()

	content := []byte(`{"accounts":[]}`)

	sha, err := store.Write(ctx, "main", "data/store.json", content, "", "create")
	require.NoError(t, err)
	require.NotEmpty(t, sha)

	doc, err := store.Read(ctx, "main", "data/store.json")
	require.NoError(t, err)

	assert.Equal(t, content, doc.Content)
	assert.Equal(t, sha, doc.SHA)

	// identical content keeps an identical hash
	sha2, err := store.Write(ctx, "main", "data/store.json", content, sha, "same")
	require.NoError(t, err)
	assert.Equal(t, sha, sha2)

	// distinct content changes it
	sha3, err := store.Write(ctx, "main", "data/store.json", []byte(`{"accounts":[1]}`), sha2, "change")
	require.NoError(t, err)
	assert.NotEqual(t, sha2, sha3)
}

func TestStore_Write_StaleSHAIsConflict(t *testing.T) {
	store := newTestStore(t, &contentsAPI{})
	ctx := context.Background()

	_, err := store.Write(ctx, "main", "data/store.json", []byte("v1"), "", "create")
	require.NoError(t, err)

	_, err = store.Write(ctx, "main", "data/store.json", []byte("v2"), "stale-sha", "update")
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestStore_Read_Missing(t *testing.T) {
	store := newTestStore(t, &contentsAPI{})

	_, err := store.Read(context.Background(), "main", "nope.json")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_Write_WithoutTokenIsAuthError(t *testing.T) {
	store := newTestStore(t, &contentsAPI{token: "secret-token"})

	_, err := store.Write(context.Background(), "main", "data/store.json", []byte("v1"), "", "create")
	assert.ErrorIs(t, err, errs.ErrAuth)
}

func TestStore_Write_WithTokenSucceeds(t *testing.T) {
	store := newTestStore(t, &contentsAPI{token: "secret-token"})
	store.SetToken("secret-token")

	_, err := store.Write(context.Background(), "main", "data/store.json", []byte("v1"), "", "create")
	assert.NoError(t, err)
}

func TestStore_EnsureBranch(t *testing.T) {
	api := &contentsAPI{}
	store := newTestStore(t, api)
	ctx := context.Background()

	// creates when missing
	require.NoError(t, store.EnsureBranch(ctx, "bizbook-vault", "main"))
	assert.True(t, api.branches["bizbook-vault"])

	// idempotent when present
	require.NoError(t, store.EnsureBranch(ctx, "bizbook-vault", "main"))
}

func TestStore_Verify(t *testing.T) {
	store := newTestStore(t, &contentsAPI{token: "secret-token"})

	assert.NoError(t, store.Verify(context.Background(), "secret-token"))
	assert.ErrorIs(t, store.Verify(context.Background(), "wrong"), errs.ErrAuth)
}

func TestStore_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	store := remote.New(remote.Config{APIBase: srv.URL, Owner: "owner", Repo: "repo"})

	_, err := store.Read(context.Background(), "main", "data/store.json")
	assert.ErrorIs(t, err, errs.ErrNetwork)
}
