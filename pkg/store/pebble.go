package store

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"voxd/pkg/logger"
	"voxd/pkg/models"

	"github.com/cockroachdb/pebble"
)

var (
	db     *pebble.DB
	dbPath string
)

// Storage key surface. These are the only persisted keys; everything else
// lives in memory.
const (
	keyUsers       = "mock_users"
	keyCurrentUser = "current_user"
	sessionsPrefix = "chat_sessions_"
)

// SessionsKey returns the persistence key scoping a session list to one
// identity.
func SessionsKey(identity string) string {
	return sessionsPrefix + identity
}

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", zap.String("path", path))
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", zap.String("path", path))
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// getJSON reads and decodes the value at key into out. It returns false when
// the key is absent or the stored bytes do not decode; corrupt data is
// deliberately treated the same as missing data so callers reset to empty
// instead of failing.
func getJSON(key string, out interface{}) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("pebble not opened; call store.Open first")
	}
	val, closer, err := db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	defer closer.Close()
	if err := json.Unmarshal(val, out); err != nil {
		decodeFailures.WithLabelValues(key).Inc()
		logger.Warn("stored_value_corrupt", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func setJSON(key string, v interface{}) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("store_set_failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// LoadSessions returns the persisted session list for an identity. A missing
// or corrupt entry yields an empty list, never an error from decoding.
func LoadSessions(identity string) ([]models.ChatSession, error) {
	loads.Inc()
	var out []models.ChatSession
	ok, err := getJSON(SessionsKey(identity), &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.ChatSession{}, nil
	}
	if out == nil {
		out = []models.ChatSession{}
	}
	return out, nil
}

// SaveSessions overwrites the persisted session list for an identity.
func SaveSessions(identity string, sessions []models.ChatSession) error {
	saves.Inc()
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	if err := setJSON(SessionsKey(identity), sessions); err != nil {
		return err
	}
	logger.Debug("sessions_saved", zap.String("identity", identity), zap.Int("count", len(sessions)))
	return nil
}

// LoadUsers returns the registered user map keyed by username. Missing or
// corrupt data yields an empty map.
func LoadUsers() (map[string]models.UserRecord, error) {
	var out map[string]models.UserRecord
	ok, err := getJSON(keyUsers, &out)
	if err != nil {
		return nil, err
	}
	if !ok || out == nil {
		return map[string]models.UserRecord{}, nil
	}
	return out, nil
}

// SaveUsers overwrites the registered user map.
func SaveUsers(users map[string]models.UserRecord) error {
	return setJSON(keyUsers, users)
}

// LoadCurrentUser returns the persisted signed-in identity, or nil when no
// user is signed in (or the stored record is corrupt).
func LoadCurrentUser() (*models.User, error) {
	var u models.User
	ok, err := getJSON(keyCurrentUser, &u)
	if err != nil {
		return nil, err
	}
	if !ok || u.Username == "" {
		return nil, nil
	}
	return &u, nil
}

// SaveCurrentUser persists the signed-in identity.
func SaveCurrentUser(u models.User) error {
	return setJSON(keyCurrentUser, u)
}

// ClearCurrentUser removes the signed-in identity record.
func ClearCurrentUser() error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete([]byte(keyCurrentUser), pebble.Sync); err != nil {
		return err
	}
	logger.Info("current_user_cleared")
	return nil
}
