package session

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"moviebuzz/models"
)

const (
	tokenFile = "token"
	userFile  = "user.json"
)

// Store persists the credential and identity for the lifetime of a browsing
// session. Both files are removed on logout or failed revalidation.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a session store rooted at dir on the given filesystem.
func NewStore(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, dir: dir}
}

// Save writes the credential and identity to disk.
func (s *Store) Save(sess models.Session) error {
	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, tokenFile), []byte(sess.Token), 0o600); err != nil {
		return err
	}
	data, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, filepath.Join(s.dir, userFile), data, 0o600)
}

// Load returns the persisted session, if a complete one exists.
func (s *Store) Load() (models.Session, bool) {
	tokenBytes, err := afero.ReadFile(s.fs, filepath.Join(s.dir, tokenFile))
	if err != nil {
		return models.Session{}, false
	}
	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		return models.Session{}, false
	}

	userBytes, err := afero.ReadFile(s.fs, filepath.Join(s.dir, userFile))
	if err != nil {
		return models.Session{}, false
	}
	var user models.User
	if err := json.Unmarshal(userBytes, &user); err != nil {
		return models.Session{}, false
	}

	return models.Session{User: user, Token: token}, true
}

// Clear removes any persisted session state.
func (s *Store) Clear() {
	_ = s.fs.Remove(filepath.Join(s.dir, tokenFile))
	_ = s.fs.Remove(filepath.Join(s.dir, userFile))
}
