package websec

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/mrlokans/offlineshelf/internal/config"
)

// SessionKeyReader is the session key holding the browser's reader key.
const SessionKeyReader = "reader_key"

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager storing sessions in the
// "sessions" table of sqlDB.
func NewSessionManager(sqlDB *sql.DB, cfg config.Session) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	if cfg.Lifetime > 0 {
		sm.Lifetime = cfg.Lifetime
		sm.IdleTimeout = cfg.Lifetime / 2
	}

	sm.Cookie.Name = "offlineshelf_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode // Lax so links from the library app keep the session
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// ReaderKey returns the reader key of the request's session, assigning a new
// one on first use.
func (sm *SessionManager) ReaderKey(r *http.Request) string {
	ctx := r.Context()
	if key := sm.GetString(ctx, SessionKeyReader); key != "" {
		return key
	}
	key := uuid.NewString()
	sm.Put(ctx, SessionKeyReader, key)
	return key
}

// GenerateSecret creates a random 32-byte hex secret for CSRF signing.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// DecodeSecret turns a configured secret into key bytes. Hex secrets are
// decoded; anything else is used verbatim.
func DecodeSecret(secret string) []byte {
	if b, err := hex.DecodeString(secret); err == nil && len(b) > 0 {
		return b
	}
	return []byte(secret)
}
