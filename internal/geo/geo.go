// Package geo maps free-text addresses to postal codes via longest-prefix
// containment over the zip reference sheet.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// Entry is one zip reference row.
type Entry struct {
	AddressPrefix string // folded form, 臺 collapsed to 台
	PostalCode    string
}

// Snapshot is an immutable zip table sorted by prefix length descending,
// so the first containment match is the most specific region.
type Snapshot struct {
	entries []Entry
}

func buildSnapshot(t *store.Table) *Snapshot {
	s := &Snapshot{}
	for _, row := range t.Rows {
		prefix := fold(strings.TrimSpace(row.Get(constants.ColZipArea)))
		code := strings.TrimSpace(row.Get(constants.ColZipCode))
		if prefix == "" || code == "" {
			continue
		}
		s.entries = append(s.entries, Entry{AddressPrefix: prefix, PostalCode: code})
	}
	sort.SliceStable(s.entries, func(i, j int) bool {
		return len([]rune(s.entries[i].AddressPrefix)) > len([]rune(s.entries[j].AddressPrefix))
	})
	return s
}

// fold collapses the two script forms of the administrative name character.
func fold(s string) string {
	return strings.ReplaceAll(s, "臺", "台")
}

// ResolveZip returns the postal code of the most specific region contained
// in the address, or "" when no entry matches.
func (s *Snapshot) ResolveZip(address string) string {
	addr := fold(address)
	for _, e := range s.entries {
		if strings.Contains(addr, e.AddressPrefix) {
			return e.PostalCode
		}
	}
	return ""
}

var leadingZip = regexp.MustCompile(`^\s*\d{3,6}`)

// PrefixAddress prepends the resolved postal code unless the address
// already starts with a digit run that looks like one.
func (s *Snapshot) PrefixAddress(address string) string {
	zip := s.ResolveZip(address)
	if zip == "" || leadingZip.MatchString(address) {
		return address
	}
	return zip + " " + address
}

// Cache mirrors the catalog cache: TTL'd snapshot, atomic swap on refresh.
type Cache struct {
	store  store.RowStore
	sheet  string
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	cur     atomic.Pointer[Snapshot]
	expires atomic.Int64
}

func NewCache(st store.RowStore, sheet string, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = constants.SheetZipRef
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{store: st, sheet: sheet, ttl: ttl, logger: logger}
}

func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s := c.cur.Load(); s != nil && time.Now().UnixNano() < c.expires.Load() {
		return s, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.cur.Load(); s != nil && time.Now().UnixNano() < c.expires.Load() {
		return s, nil
	}
	t, err := c.store.ReadAll(ctx, c.sheet)
	if err != nil {
		if s := c.cur.Load(); s != nil {
			c.logger.Warn("ziptable.refresh.failed, serving stale", "error", err)
			return s, nil
		}
		return nil, fmt.Errorf("load zip table: %w", err)
	}
	s := buildSnapshot(t)
	c.cur.Store(s)
	c.expires.Store(time.Now().Add(c.ttl).UnixNano())
	c.logger.Info("ziptable.refresh.ok", "entries", len(s.entries))
	return s, nil
}
