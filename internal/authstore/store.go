// Package authstore keeps the session token for each backend the operator has
// logged in to.
package authstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Record struct {
	Token     string    `json:"token"`
	User      string    `json:"user,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	Sessions map[string]Record `json:"sessions"`
}

func DefaultPath() (string, error) {
	if x := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); x != "" {
		return filepath.Join(x, "commitlens", "credentials.json"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		h, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine config dir")
		}
		dir = filepath.Join(h, ".config")
	}
	return filepath.Join(dir, "commitlens", "credentials.json"), nil
}

func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// Load reads path. A missing file is an empty store, not an error.
func Load(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Store{Sessions: map[string]Record{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var s Store
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Sessions == nil {
		s.Sessions = map[string]Record{}
	}
	return &s, nil
}

func SaveAtomic(path string, s *Store) error {
	if s == nil {
		return errors.New("missing store")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if s.Sessions == nil {
		s.Sessions = map[string]Record{}
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) Get(baseURL string) (Record, bool) {
	if s == nil || s.Sessions == nil {
		return Record{}, false
	}
	baseURL = normalizeBaseURL(baseURL)
	if baseURL == "" {
		return Record{}, false
	}
	rec, ok := s.Sessions[baseURL]
	if !ok || strings.TrimSpace(rec.Token) == "" {
		return Record{}, false
	}
	rec.Token = strings.TrimSpace(rec.Token)
	return rec, true
}

// Token is Get for callers that only need the bearer token.
func (s *Store) Token(baseURL string) (string, bool) {
	rec, ok := s.Get(baseURL)
	return rec.Token, ok
}

func (s *Store) Set(baseURL, token, user string) {
	if s.Sessions == nil {
		s.Sessions = map[string]Record{}
	}
	baseURL = normalizeBaseURL(baseURL)
	token = strings.TrimSpace(token)
	if baseURL == "" || token == "" {
		return
	}
	s.Sessions[baseURL] = Record{Token: token, User: strings.TrimSpace(user), UpdatedAt: time.Now().UTC()}
}

// Delete removes the session for baseURL and reports whether one existed.
func (s *Store) Delete(baseURL string) bool {
	if s == nil || s.Sessions == nil {
		return false
	}
	baseURL = normalizeBaseURL(baseURL)
	if _, ok := s.Sessions[baseURL]; !ok {
		return false
	}
	delete(s.Sessions, baseURL)
	return true
}

// BaseURLs lists every backend with a stored session, sorted.
func (s *Store) BaseURLs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Sessions))
	for k := range s.Sessions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
