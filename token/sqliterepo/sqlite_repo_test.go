package sqliterepo_test

import (
	"path/filepath"
	"testing"

	"github.com/jrsteele09/taskflow-client/oauthmodel"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/jrsteele09/taskflow-client/token/sqliterepo"
	"github.com/jrsteele09/taskflow-client/users"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadDelete(t *testing.T) {
	r, err := sqliterepo.New(":memory:")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Save(map[string]string{
		token.KeyRefreshToken: "refresh-1",
		token.KeySessionID:    "session-1",
	}))
	require.NoError(t, r.Save(map[string]string{token.KeyRefreshToken: "refresh-2"}))

	v, found, err := r.Load(token.KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "refresh-2", v)

	require.NoError(t, r.Delete(token.AllKeys...))
	require.NoError(t, r.Delete(token.AllKeys...))
	_, found, err = r.Load(token.KeySessionID)
	require.NoError(t, err)
	require.False(t, found)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")

	r, err := sqliterepo.New(path)
	require.NoError(t, err)
	store := token.NewStore(r)
	require.NoError(t, store.StoreTokens(oauthmodel.AuthTokens{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		SessionID:    "session-1",
	}, &users.StoredUser{ID: "u-1", Email: "m@example.com", Role: users.RoleManager}))
	require.NoError(t, r.Close())

	reopened, err := sqliterepo.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	restarted := token.NewStore(reopened)
	_, ok := restarted.AccessToken()
	require.False(t, ok)
	sid, ok := restarted.SessionID()
	require.True(t, ok)
	require.Equal(t, "session-1", sid)
	u, ok := restarted.StoredUser()
	require.True(t, ok)
	require.Equal(t, users.RoleManager, u.Role)
}

func TestClosedDatabaseReadsAsAbsent(t *testing.T) {
	r, err := sqliterepo.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, r.Save(map[string]string{token.KeySessionID: "s"}))
	require.NoError(t, r.Close())

	_, _, err = r.Load(token.KeySessionID)
	require.Error(t, err)

	_, ok := token.NewStore(r).SessionID()
	require.False(t, ok)
}
