package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/atinyakov/kidcoin/internal/models"
)

// Key is the name of the single persisted record.
const Key = "kidcoin:user"

// DefaultPath is where the client keeps the record unless told otherwise.
const DefaultPath = Key + ".json"

// ProfileStore persists at most one UserAccount to a JSON file.
type ProfileStore struct {
	path string
}

func New(path string) *ProfileStore {
	if path == "" {
		path = DefaultPath
	}
	return &ProfileStore{path: path}
}

// Save durably overwrites the persisted record. The write goes through
// a temp file and rename so a crash never leaves a half-written record.
func (s *ProfileStore) Save(acc *models.UserAccount) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".kidcoin-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Load returns the last saved record. A missing file or an unparseable
// payload both report absent; corruption never surfaces as an error.
func (s *ProfileStore) Load() (*models.UserAccount, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	var acc models.UserAccount
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, false
	}
	if acc.Username == "" {
		return nil, false
	}
	return &acc, true
}
