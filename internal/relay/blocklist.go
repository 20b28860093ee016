package relay

import (
	"bufio"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Blocklist answers "is this peer address currently blocked?". It is
// file-backed, one address (or address/CIDR prefix) per line, and reloads
// itself on write events from an fsnotify watcher so edits take effect
// without a restart — grounded on the original's blocklist.c contract
// (blocklist_init/blocklist_check/blocklist_refresh), translated here into
// a push-based watcher instead of a poll-driven mtime check.
type Blocklist struct {
	mu       sync.RWMutex
	path     string
	nets     []*net.IPNet
	ips      map[string]struct{}
	log      *logrus.Entry
	watcher  *fsnotify.Watcher
	reloaded chan struct{}
}

// NewBlocklist builds an empty, unwatched blocklist. Call Load to read an
// initial file and Watch to start hot-reloading it.
func NewBlocklist(log *logrus.Entry) *Blocklist {
	return &Blocklist{
		ips:      make(map[string]struct{}),
		log:      log,
		reloaded: make(chan struct{}, 1),
	}
}

// Load (re)reads path, replacing the in-memory set. A malformed line is
// skipped with a warning rather than aborting the load — grounded on the
// original parser, which never failed the daemon over one bad line.
func (b *Blocklist) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ips := make(map[string]struct{})
	var nets []*net.IPNet

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "/") {
			_, ipnet, err := net.ParseCIDR(line)
			if err != nil {
				b.warnf("skipping malformed blocklist entry %q: %v", line, err)
				continue
			}
			nets = append(nets, ipnet)
			continue
		}
		if ip := net.ParseIP(line); ip != nil {
			ips[ip.String()] = struct{}{}
			continue
		}
		b.warnf("skipping malformed blocklist entry %q", line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.path = path
	b.ips = ips
	b.nets = nets
	b.mu.Unlock()

	return nil
}

func (b *Blocklist) warnf(format string, args ...interface{}) {
	if b.log != nil {
		b.log.Warnf(format, args...)
	}
}

// Watch starts an fsnotify watcher on the blocklist file's directory and
// reloads on any write/create event targeting it. Call Close to stop.
func (b *Blocklist) Watch() error {
	b.mu.RLock()
	path := b.path
	b.mu.RUnlock()
	if path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dirOf(path)); err != nil {
		w.Close()
		return err
	}
	b.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := b.Load(path); err != nil {
					b.warnf("blocklist reload failed: %v", err)
					continue
				}
				select {
				case b.reloaded <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				b.warnf("blocklist watcher error: %v", err)
			}
		}
	}()

	return nil
}

func (b *Blocklist) Close() error {
	if b.watcher != nil {
		return b.watcher.Close()
	}
	return nil
}

// Check reports whether addr is currently blocked.
func (b *Blocklist) Check(addr net.IP) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.ips[addr.String()]; ok {
		return true
	}
	for _, n := range b.nets {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}

// Reloaded reports, non-blocking, whether a reload happened since the last
// call — the engine's maintenance tick uses this to decide whether to
// re-check already-open connections (§4.1 step 4, "if the blocklist
// reloaded, close connections now on the list").
func (b *Blocklist) Reloaded() bool {
	select {
	case <-b.reloaded:
		return true
	default:
		return false
	}
}

func dirOf(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}
