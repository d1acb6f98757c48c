// Package config defines the global settings shared by every conch command.
//
// Settings come from command line flags, CONCH_* environment variables, an
// optional YAML config file and built-in defaults. Flags always win.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/glabrego/conch/internal/logging"
)

const (
	DefaultPageSize     = 42
	DefaultPollInterval = 2 * time.Second
	DefaultPrefetch     = 3

	minPollInterval = 100 * time.Millisecond
)

// KeyMapConfig holds comma-separated key lists for every TUI action.
type KeyMapConfig struct {
	Down      string `yaml:"down" kong:"help='Select older blast',default='j,down'"`
	Up        string `yaml:"up" kong:"help='Select newer blast',default='k,up'"`
	Top       string `yaml:"top" kong:"help='Jump to newest blast',default='0,g,home'"`
	Stick     string `yaml:"stick" kong:"help='Toggle stick to top',default='s'"`
	PageDown  string `yaml:"page_down" kong:"help='Page older',default='pgdown,ctrl+d'"`
	PageUp    string `yaml:"page_up" kong:"help='Page newer',default='pgup,ctrl+u'"`
	Refresh   string `yaml:"refresh" kong:"help='Poll now',default='r'"`
	Yank      string `yaml:"yank" kong:"help='Copy selected blast',default='y'"`
	Open      string `yaml:"open" kong:"help='Open the selected blast in full',default='enter'"`
	Back      string `yaml:"back" kong:"help='Return to the list',default='esc,backspace'"`
	PrevBlast string `yaml:"prev_blast" kong:"help='Show the newer blast in detail',default='['"`
	NextBlast string `yaml:"next_blast" kong:"help='Show the older blast in detail',default=']'"`
	Help      string `yaml:"help" kong:"help='Toggle help',default='?'"`
	Quit      string `yaml:"quit" kong:"help='Quit',default='q,ctrl+c'"`
}

// DefaultKeyMap matches the flag defaults above.
func DefaultKeyMap() KeyMapConfig {
	return KeyMapConfig{
		Down:      "j,down",
		Up:        "k,up",
		Top:       "0,g,home",
		Stick:     "s",
		PageDown:  "pgdown,ctrl+d",
		PageUp:    "pgup,ctrl+u",
		Refresh:   "r",
		Yank:      "y",
		Open:      "enter",
		Back:      "esc,backspace",
		PrevBlast: "[",
		NextBlast: "]",
		Help:      "?",
		Quit:      "q,ctrl+c",
	}
}

// Keys splits a comma-separated key list.
func Keys(list string) []string {
	var out []string
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

type Config struct {
	ConfigFile   kong.ConfigFlag `yaml:"-" kong:"name='config',help='Path to a YAML config file'"`
	DBPath       string          `yaml:"db" kong:"name='db',help='SQLite database path',default='${db_path}',env='CONCH_DB',type='path'"`
	PageSize     int             `yaml:"page_size" kong:"help='Blasts fetched per query',default='${page_size}',env='CONCH_PAGE_SIZE'"`
	PollInterval time.Duration   `yaml:"poll_interval" kong:"help='Time between polls',default='${poll_interval}',env='CONCH_POLL_INTERVAL'"`
	Prefetch     int             `yaml:"prefetch" kong:"help='Fetch older blasts when the selection is this close to the oldest loaded one',default='${prefetch}',env='CONCH_PREFETCH'"`
	LogFile      string          `yaml:"log_file" kong:"help='Log file path (- disables logging)',default='${log_file}',env='CONCH_LOG_FILE'"`
	LogLevel     string          `yaml:"log_level" kong:"help='Log level',default='info',enum='debug,info,warn,error',env='CONCH_LOG_LEVEL'"`
	KeyMap       KeyMapConfig    `yaml:"keymap" kong:"embed,prefix='keymap.'"`
}

func (c Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1: %d", c.PageSize)
	}
	if c.PollInterval < minPollInterval {
		return fmt.Errorf("poll interval must be at least %s: %s", minPollInterval, c.PollInterval)
	}
	if c.Prefetch < 0 {
		return fmt.Errorf("prefetch must not be negative: %d", c.Prefetch)
	}
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	return nil
}

// ValidateRemoteURL accepts an empty URL (no remote) or an http(s) base URL
// without a trailing slash.
func ValidateRemoteURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid remote URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("remote URL must use http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("remote URL has no host: %s", raw)
	}
	if strings.HasSuffix(raw, "/") {
		return fmt.Errorf("remote URL must not end with '/': %s", raw)
	}
	return nil
}

// Options wires the YAML loader, the default config file and the default
// values into a kong parser.
func Options(defaultConfigPath string) []kong.Option {
	options := []kong.Option{
		kong.Vars{
			"db_path":       DefaultDBPath(),
			"log_file":      logging.DefaultPath(),
			"page_size":     fmt.Sprint(DefaultPageSize),
			"poll_interval": DefaultPollInterval.String(),
			"prefetch":      fmt.Sprint(DefaultPrefetch),
		},
	}
	var paths []string
	if defaultConfigPath != "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			paths = append(paths, defaultConfigPath)
		}
	}
	return append(options, kong.Configuration(yamlKongLoader, paths...))
}

// DefaultConfigPath is $XDG_CONFIG_HOME/conch/config.yaml, falling back to
// ~/.config.
func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "conch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "conch", "config.yaml")
}

// DefaultDBPath is $XDG_DATA_HOME/conch/conch.db, falling back to
// ~/.local/share.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "conch", "conch.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "conch.db"
	}
	return filepath.Join(home, ".local", "share", "conch", "conch.db")
}

func yamlKongLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		names := []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")}
		for _, name := range names {
			if v, ok := lookup(values, strings.Split(name, ".")); ok {
				return scalar(v), nil
			}
		}
		return nil, nil
	}
	return f, nil
}

func lookup(values map[string]any, path []string) (any, bool) {
	curr := values
	for i, part := range path {
		v, ok := curr[part]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		if curr, ok = v.(map[string]any); !ok {
			return nil, false
		}
	}
	return nil, false
}

// scalar renders YAML values as the strings kong's mappers parse, so
// `page_size: 10` and `poll_interval: 5s` decode the same way flags do.
func scalar(v any) any {
	switch v := v.(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
