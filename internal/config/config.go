// Package config loads the key=value configuration grammar described in
// §6: ATC registry entries, listener addresses, TLS material paths, the
// blocklist path, and the supplemented logging/queue tuning keys. It
// hot-reloads on file changes the same way internal/relay's blocklist does,
// grounded on the same fsnotify pattern.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cpdlc-go/cpdlcd/duration"
)

const (
	DefaultPort         = 17622
	DefaultListenAddr   = "localhost"
	DefaultATCName      = "TEST"
	DefaultQueueMaxByte = 128 << 20
	DefaultQueueTTL     = 3600 * time.Second
)

// Config is the parsed form of a configuration file.
type Config struct {
	ATCNames  []string
	Listeners []string

	KeyFile   string
	CertFile  string
	CAFile    string
	Blocklist string

	LogLevel  string
	LogFormat string

	QueueMaxBytes uint64
	QueueTTL      time.Duration
}

// Parse reads the key=value grammar from the lines of the file at path. Blank lines and lines
// starting with '#' are ignored. Unknown keys are reported via onUnknown if
// non-nil, matching the original parser's forgiving-but-noisy stance on
// unrecognized directives; a nil onUnknown silently ignores them.
func Parse(path string, onUnknown func(key string)) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{
		QueueMaxBytes: DefaultQueueMaxByte,
		QueueTTL:      DefaultQueueTTL,
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("%s:%d: missing '=' in %q", path, lineNo, line)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if err := cfg.apply(key, val); err != nil {
			if err == errUnknownKey {
				if onUnknown != nil {
					onUnknown(key)
				}
				continue
			}
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

var errUnknownKey = fmt.Errorf("unrecognized key")

func (c *Config) apply(key, val string) error {
	switch {
	case strings.HasPrefix(key, "atc/name/"):
		c.ATCNames = append(c.ATCNames, val)
	case strings.HasPrefix(key, "listen/"):
		c.Listeners = append(c.Listeners, val)
	case key == "keyfile":
		c.KeyFile = val
	case key == "certfile":
		c.CertFile = val
	case key == "cafile":
		c.CAFile = val
	case key == "blocklist":
		c.Blocklist = val
	case key == "log/level":
		c.LogLevel = val
	case key == "log/format":
		c.LogFormat = val
	case key == "queue/max-bytes":
		n, err := parseByteSize(val)
		if err != nil {
			return fmt.Errorf("queue/max-bytes: %w", err)
		}
		c.QueueMaxBytes = n
	case key == "queue/entry-ttl":
		d, err := duration.Parse(val)
		if err != nil {
			return fmt.Errorf("queue/entry-ttl: %w", err)
		}
		c.QueueTTL = d.Time()
	default:
		return errUnknownKey
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.ATCNames) == 0 {
		c.ATCNames = []string{DefaultATCName}
	}
	if len(c.Listeners) == 0 {
		c.Listeners = []string{fmt.Sprintf("%s:%d", DefaultListenAddr, DefaultPort)}
	}
}

// parseByteSize accepts a plain decimal integer or a size with a
// case-insensitive K/M/G suffix (base 1024), e.g. "256M".
func parseByteSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	mult := uint64(1)
	suffix := s[len(s)-1]
	switch suffix {
	case 'k', 'K':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1 << 30
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// Watcher hot-reloads a config file, handing each successfully reparsed
// Config to onReload. It never calls onReload with a config it failed to
// parse — a bad edit is logged (via onError) and the previous config keeps
// running, mirroring the blocklist's reload contract.
type Watcher struct {
	mu      sync.Mutex
	path    string
	current *Config
	watcher *fsnotify.Watcher
}

func NewWatcher(path string, initial *Config) *Watcher {
	return &Watcher{path: path, current: initial}
}

func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Watch starts reloading on writes to path, calling onReload with each new
// Config and onError with any parse failure encountered along the way.
func (w *Watcher) Watch(onReload func(*Config), onError func(error)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(dirOf(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	go func() {
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Name != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Parse(w.path, nil)
				if err != nil {
					if onError != nil {
						onError(err)
					}
					continue
				}
				w.mu.Lock()
				w.current = cfg
				w.mu.Unlock()
				if onReload != nil {
					onReload(cfg)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			}
		}
	}()

	return nil
}

func (w *Watcher) Close() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}
