package vault_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmreis/bizbook/internal/cache"
	"github.com/davidmreis/bizbook/internal/errs"
	"github.com/davidmreis/bizbook/internal/remote"
	"github.com/davidmreis/bizbook/internal/vault"
)

const (
	testBranch  = "bizbook-vault"
	testDefault = "main"
	testPath    = "vault/record.json"
)

// fakeRemote stores at most one document and accepts a single token. Writes
// without that token installed are rejected, like the real content API.
type fakeRemote struct {
	content    []byte
	validToken string

	token    string // installed via SetToken
	branch   string // last branch ensured
	writeErr error

	verifyCalls int
}

func (f *fakeRemote) Read(_ context.Context, _, _ string) (remote.Document, error) {
	if f.content == nil {
		return remote.Document{}, errs.ErrNotFound
	}

	return remote.Document{Content: f.content, SHA: "sha"}, nil
}

func (f *fakeRemote) Write(_ context.Context, _, _ string, content []byte, _, _ string) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}

	if f.token != f.validToken {
		return "", errs.ErrAuth
	}

	f.content = content

	return "sha", nil
}

func (f *fakeRemote) Verify(_ context.Context, token string) error {
	f.verifyCalls++

	if token != f.validToken {
		return errs.ErrAuth
	}

	return nil
}

func (f *fakeRemote) SetToken(token string) {
	f.token = token
}

func (f *fakeRemote) EnsureBranch(_ context.Context, name, _ string) error {
	f.branch = name
	return nil
}

func newTestVault(t *testing.T, r *fakeRemote) *vault.Vault {
	t.Helper()

	return vault.New(r, cache.New(t.TempDir()), vault.Options{
		Branch:        testBranch,
		Path:          testPath,
		DefaultBranch: testDefault,
	})
}

func TestVault_SetupThenLogin(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := newTestVault(t, r)
	ctx := context.Background()

	require.False(t, v.Configured())

	require.NoError(t, v.Setup(ctx, "ghp_credential", "correct horse battery"))
	assert.True(t, v.Configured())
	assert.NotNil(t, r.content, "record should replicate to the remote store")

	got, err := v.Login(ctx, "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "ghp_credential", got)
	assert.Equal(t, 2, r.verifyCalls, "one verification at setup, one at login")
}

// The replication write must carry the credential being stored: it is the
// only credential that exists at setup time, and the target branch has to be
// created before the first write can land.
func TestVault_Setup_ReplicationCarriesCredential(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := newTestVault(t, r)

	require.NoError(t, v.Setup(context.Background(), "ghp_credential", "correct horse battery"))

	assert.Equal(t, "ghp_credential", r.token)
	assert.Equal(t, testBranch, r.branch)
	assert.NotNil(t, r.content)
}

func TestVault_Setup_Validation(t *testing.T) {
	v := newTestVault(t, &fakeRemote{})
	ctx := context.Background()

	assert.ErrorIs(t, v.Setup(ctx, "", "long enough password"), errs.ErrValidation)
	assert.ErrorIs(t, v.Setup(ctx, "ghp_credential", "short"), errs.ErrValidation)
}

func TestVault_Setup_RejectsBadCredential(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_other"}
	v := newTestVault(t, r)

	err := v.Setup(context.Background(), "ghp_bad", "correct horse battery")
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.False(t, v.Configured(), "a rejected credential must not be sealed away")
}

func TestVault_Setup_OfflineVerifyStillConfiguresLocally(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := vault.New(verifyFails{r}, cache.New(t.TempDir()), vault.Options{
		Branch:        testBranch,
		Path:          testPath,
		DefaultBranch: testDefault,
	})

	require.NoError(t, v.Setup(context.Background(), "ghp_credential", "correct horse battery"))
	assert.True(t, v.Configured())
}

func TestVault_Login_WrongPassword(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := newTestVault(t, r)
	ctx := context.Background()

	require.NoError(t, v.Setup(ctx, "ghp_credential", "correct horse battery"))

	_, err := v.Login(ctx, "wrong password!")
	assert.ErrorIs(t, err, errs.ErrInvalidPassword)
	assert.Equal(t, 1, r.verifyCalls, "a failed decryption must not reach the remote")
}

func TestVault_Login_RevokedCredential(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := newTestVault(t, r)
	ctx := context.Background()

	require.NoError(t, v.Setup(ctx, "ghp_credential", "correct horse battery"))

	// the credential was revoked after setup; it decrypts fine but the
	// remote now rejects it
	r.validToken = "ghp_other"

	_, err := v.Login(ctx, "correct horse battery")
	assert.ErrorIs(t, err, errs.ErrInvalidPassword)
}

func TestVault_Login_VerifyNetworkFailurePropagates(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := newTestVault(t, r)
	ctx := context.Background()

	require.NoError(t, v.Setup(ctx, "ghp_credential", "correct horse battery"))

	// same record, but the identity check dies on the network
	broken := vault.New(verifyFails{r}, cache.New(t.TempDir()), vault.Options{
		Branch:        testBranch,
		Path:          testPath,
		DefaultBranch: testDefault,
	})

	_, err := broken.Login(ctx, "correct horse battery")
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.NotErrorIs(t, err, errs.ErrInvalidPassword)
}

func TestVault_Setup_SurvivesRemoteFailure(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential", writeErr: errs.ErrNetwork}
	v := newTestVault(t, r)
	ctx := context.Background()

	require.NoError(t, v.Setup(ctx, "ghp_credential", "correct horse battery"))
	assert.True(t, v.Configured())

	// the record is locally usable even though replication failed
	r.writeErr = nil
	got, err := v.Login(ctx, "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "ghp_credential", got)
}

func TestVault_Login_FetchesRecordFromRemote(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	seed := newTestVault(t, r)
	ctx := context.Background()

	// another device configured the vault; this one has an empty cache
	require.NoError(t, seed.Setup(ctx, "ghp_credential", "correct horse battery"))

	fresh := newTestVault(t, r)
	require.False(t, fresh.Configured())

	got, err := fresh.Login(ctx, "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "ghp_credential", got)

	// fetched record is now cached
	assert.True(t, fresh.Configured())
}

func TestVault_Login_Unconfigured(t *testing.T) {
	v := newTestVault(t, &fakeRemote{})

	_, err := v.Login(context.Background(), "correct horse battery")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestVault_Reset(t *testing.T) {
	r := &fakeRemote{validToken: "ghp_credential"}
	v := newTestVault(t, r)
	ctx := context.Background()

	require.NoError(t, v.Setup(ctx, "ghp_credential", "correct horse battery"))
	require.True(t, v.Configured())

	require.NoError(t, v.Reset())
	assert.False(t, v.Configured())
}

// verifyFails wraps a remote so reads and writes still work while Verify
// reports a transport failure.
type verifyFails struct {
	*fakeRemote
}

func (verifyFails) Verify(context.Context, string) error {
	return errs.ErrNetwork
}
