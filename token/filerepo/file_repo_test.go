package filerepo_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/jrsteele09/taskflow-client/token/filerepo"
	"github.com/stretchr/testify/require"
)

var fastKDF = filerepo.KDFParams{Time: 1, Memory: 8 * 1024, Threads: 1}

func newRepo(t *testing.T, path string, opts ...filerepo.Option) *filerepo.FileRepo {
	t.Helper()
	r, err := filerepo.New(path, append([]filerepo.Option{filerepo.WithKDFParams(fastKDF)}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestRoundTripSurvivesNewInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	r := newRepo(t, path)

	_, found, err := r.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, r.Save(map[string]string{
		token.KeyRefreshToken: "refresh-1",
		token.KeySessionID:    "session-1",
	}))

	again := newRepo(t, path)
	v, found, err := again.Load(token.KeySessionID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "session-1", v)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestDeleteAllRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	r := newRepo(t, path)
	require.NoError(t, r.Save(map[string]string{token.KeyUser: `{"id":"1"}`}))

	require.NoError(t, r.Delete(token.AllKeys...))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, r.Delete(token.AllKeys...))
}

func TestPassphraseSealsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	r := newRepo(t, path, filerepo.WithPassphrase("correct horse"))
	require.NoError(t, r.Save(map[string]string{token.KeyRefreshToken: "very-secret-refresh"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "very-secret-refresh"))

	reopened := newRepo(t, path, filerepo.WithPassphrase("correct horse"))
	v, found, err := reopened.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "very-secret-refresh", v)

	wrong := newRepo(t, path, filerepo.WithPassphrase("battery staple"))
	_, found, err = wrong.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.False(t, found)

	plain := newRepo(t, path)
	_, found, err = plain.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.False(t, found)
}

func TestWrongPassphraseKeepsSealedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	right := newRepo(t, path, filerepo.WithPassphrase("right"))
	require.NoError(t, right.Save(map[string]string{
		token.KeyRefreshToken: "r1",
		token.KeySessionID:    "s1",
	}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, locked := range []*filerepo.FileRepo{
		newRepo(t, path, filerepo.WithPassphrase("wrong")),
		newRepo(t, path),
	} {
		_, found, err := locked.Load(token.KeyRefreshToken)
		require.NoError(t, err)
		require.False(t, found)

		err = locked.Save(map[string]string{token.KeyUser: "{}"})
		require.ErrorIs(t, err, errors.ErrWrongPassphrase)

		err = locked.Delete(token.AllKeys...)
		require.ErrorIs(t, err, errors.ErrWrongPassphrase)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	v, found, err := newRepo(t, path, filerepo.WithPassphrase("right")).Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "r1", v)
}

func TestStoreClearReportsLockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, newRepo(t, path, filerepo.WithPassphrase("right")).Save(map[string]string{
		token.KeyRefreshToken: "r1",
	}))

	store := token.NewStore(newRepo(t, path, filerepo.WithPassphrase("wrong")))
	require.ErrorIs(t, store.Clear(), errors.ErrWrongPassphrase)

	v, found, err := newRepo(t, path, filerepo.WithPassphrase("right")).Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "r1", v)
}

func readHeader(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	kdf, ok := doc["kdf"].(map[string]any)
	require.True(t, ok, "document is not sealed")
	return kdf
}

func TestOversizedKDFHeaderIsNotDerived(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	tampered := `{
  "version": 1,
  "kdf": {"time": 4000000000, "memory": 4000000000, "threads": 255, "salt": "AAAAAAAAAAAAAAAAAAAAAA=="},
  "nonce": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
  "ciphertext": "AAAA"
}`
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))

	r := newRepo(t, path, filerepo.WithPassphrase("right"))
	_, found, err := r.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, r.Save(map[string]string{token.KeyRefreshToken: "r2"}))
	kdf := readHeader(t, path)
	require.EqualValues(t, fastKDF.Time, kdf["time"])
	require.EqualValues(t, fastKDF.Memory, kdf["memory"])
	require.EqualValues(t, fastKDF.Threads, kdf["threads"])
}

func TestWritesUseConfiguredKDFParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	older := filerepo.KDFParams{Time: 2, Memory: 16 * 1024, Threads: 2}
	first, err := filerepo.New(path, filerepo.WithPassphrase("right"), filerepo.WithKDFParams(older))
	require.NoError(t, err)
	require.NoError(t, first.Save(map[string]string{token.KeyRefreshToken: "r1"}))
	require.EqualValues(t, 2, readHeader(t, path)["time"])

	r := newRepo(t, path, filerepo.WithPassphrase("right"))
	v, found, err := r.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "r1", v)

	require.NoError(t, r.Save(map[string]string{token.KeySessionID: "s1"}))
	kdf := readHeader(t, path)
	require.EqualValues(t, fastKDF.Time, kdf["time"])
	require.EqualValues(t, fastKDF.Memory, kdf["memory"])

	reopened := newRepo(t, path, filerepo.WithPassphrase("right"))
	v, found, err = reopened.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "r1", v)
}

func TestPlainDocumentIsSealedOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, newRepo(t, path).Save(map[string]string{token.KeyRefreshToken: "plain-refresh"}))

	r := newRepo(t, path, filerepo.WithPassphrase("right"))
	v, found, err := r.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "plain-refresh", v)

	require.NoError(t, r.Save(map[string]string{token.KeySessionID: "s1"}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "plain-refresh"))
}

func TestNewRejectsUnsafeKDFParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	_, err := filerepo.New(path, filerepo.WithKDFParams(filerepo.KDFParams{Time: 0, Memory: 8 * 1024, Threads: 1}))
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	_, err = filerepo.New(path, filerepo.WithKDFParams(filerepo.KDFParams{Time: 1, Memory: 1 << 30, Threads: 1}))
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o600))

	r := newRepo(t, path)
	_, found, err := r.Load(token.KeySessionID)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, r.Save(map[string]string{token.KeySessionID: "s-2"}))
	v, found, err := r.Load(token.KeySessionID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "s-2", v)
}

func TestStoreOverFileRepoRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := token.NewStore(newRepo(t, path))
	require.NoError(t, store.StoreTokens(oauthmodel.AuthTokens{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		SessionID:    "session-1",
	}, nil))

	restarted := token.NewStore(newRepo(t, path))
	_, ok := restarted.AccessToken()
	require.False(t, ok)
	refresh, ok := restarted.RefreshToken()
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)

	require.NoError(t, restarted.Clear())
	_, ok = token.NewStore(newRepo(t, path)).SessionID()
	require.False(t, ok)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := filerepo.New("")
	require.Error(t, err)
}
