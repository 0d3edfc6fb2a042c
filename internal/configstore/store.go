// Package configstore reads and writes the commitlens YAML config file.
package configstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/commitlens/commitlens-cli/internal/collection"
)

const (
	DefaultProdAPIURL   = "https://api.commitlens.dev"
	DefaultLocalAPIURL  = "http://localhost:8090"
	DefaultPollInterval = 2 * time.Second
	DefaultLogLevel     = "info"
)

type Log struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Routes overrides the collection path of a resource on the backend.
type Routes struct {
	Users    string       `yaml:"users,omitempty"`
	Projects string       `yaml:"projects,omitempty"`
	Agents   string       `yaml:"agents,omitempty"`
	Analysis string       `yaml:"analysis,omitempty"`
	Create   CreateRoutes `yaml:"create,omitempty"`
}

// CreateRoutes overrides the full create path of a resource, e.g.
// "/projects" for a backend that creates on the collection path.
type CreateRoutes struct {
	Users    string `yaml:"users,omitempty"`
	Projects string `yaml:"projects,omitempty"`
	Agents   string `yaml:"agents,omitempty"`
}

type Store struct {
	APIURL       string        `yaml:"api_url,omitempty"`
	PageSize     int           `yaml:"page_size,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	ExportDir    string        `yaml:"export_dir,omitempty"`
	Log          Log           `yaml:"log,omitempty"`
	Routes       Routes        `yaml:"routes,omitempty"`
}

func configDir() (string, error) {
	if x := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); x != "" {
		return filepath.Join(x, "commitlens"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(dir) == "" {
		h, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine user config dir")
		}
		dir = filepath.Join(h, ".config")
	}
	return filepath.Join(dir, "commitlens"), nil
}

func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Defaults is the config used when no file exists.
func Defaults() *Store {
	st := &Store{}
	st.applyDefaults()
	return st
}

func (st *Store) applyDefaults() {
	st.APIURL = strings.TrimRight(strings.TrimSpace(st.APIURL), "/")
	if st.APIURL == "" {
		st.APIURL = DefaultProdAPIURL
	}
	if st.PageSize == 0 {
		st.PageSize = collection.DefaultPageSize
	}
	if st.PollInterval == 0 {
		st.PollInterval = DefaultPollInterval
	}
	st.ExportDir = strings.TrimSpace(st.ExportDir)
	if st.ExportDir == "" {
		st.ExportDir = "."
	}
	st.Log.Level = strings.ToLower(strings.TrimSpace(st.Log.Level))
	if st.Log.Level == "" {
		st.Log.Level = DefaultLogLevel
	}
	st.Log.File = strings.TrimSpace(st.Log.File)
}

func (st *Store) Validate() error {
	if !slices.Contains(collection.PageSizeOptions, st.PageSize) {
		return fmt.Errorf("page_size %d must be one of %v", st.PageSize, collection.PageSizeOptions)
	}
	if st.PollInterval < 250*time.Millisecond {
		return fmt.Errorf("poll_interval %s is too short (minimum 250ms)", st.PollInterval)
	}
	switch st.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be debug, info, warn or error", st.Log.Level)
	}
	if !strings.HasPrefix(st.APIURL, "http://") && !strings.HasPrefix(st.APIURL, "https://") {
		return fmt.Errorf("api_url %q must be an http(s) URL", st.APIURL)
	}
	return nil
}

// Load reads path, fills defaults and validates the result.
func Load(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st Store
	if err := yaml.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	st.applyDefaults()
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &st, nil
}

// LoadOrDefault is Load, except that a missing file yields Defaults.
func LoadOrDefault(path string) (*Store, error) {
	st, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return st, err
}

// ApplyEnv overrides fields from COMMITLENS_* variables. Flags are applied by
// the caller after this.
func (st *Store) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv("COMMITLENS_API_URL")); v != "" {
		st.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("COMMITLENS_PAGE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COMMITLENS_PAGE_SIZE: %w", err)
		}
		st.PageSize = n
	}
	if v := strings.TrimSpace(os.Getenv("COMMITLENS_POLL_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COMMITLENS_POLL_INTERVAL: %w", err)
		}
		st.PollInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("COMMITLENS_EXPORT_DIR")); v != "" {
		st.ExportDir = v
	}
	if v := strings.TrimSpace(os.Getenv("COMMITLENS_LOG_LEVEL")); v != "" {
		st.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("COMMITLENS_LOG_FILE")); v != "" {
		st.Log.File = v
	}
	return st.Validate()
}

func SaveAtomic(path string, st *Store) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("missing path")
	}
	if st == nil {
		return errors.New("missing store")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
