package token

// Keys of the durable entries. The access token never has a key: it lives in
// process memory only.
const (
	KeyRefreshToken = "tf_refresh_token"
	KeySessionID    = "tf_session_id"
	KeyUser         = "tf_user"
)

// AllKeys lists every durable entry the Store owns.
var AllKeys = []string{KeyRefreshToken, KeySessionID, KeyUser}

// Repo is the durable key/value tier that survives process restarts.
// Implementations must make Save atomic: either every entry is written or none.
type Repo interface {
	Load(key string) (value string, found bool, err error)
	Save(entries map[string]string) error
	Delete(keys ...string) error
}

// NopRepo is the durable tier of an execution context that has no persistent
// storage: reads are always absent and writes are discarded.
type NopRepo struct{}

var _ Repo = NopRepo{}

func (NopRepo) Load(string) (string, bool, error) { return "", false, nil }
func (NopRepo) Save(map[string]string) error      { return nil }
func (NopRepo) Delete(...string) error            { return nil }
