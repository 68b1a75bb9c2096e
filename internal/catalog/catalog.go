// Package catalog loads the book master sheet and resolves free-text book
// tokens to canonical titles.
package catalog

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
	"github.com/meihsieh/bookship-bot/internal/normalize"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// Entry is one catalog row.
type Entry struct {
	CanonicalTitle string
	Aliases        []string // normalized comparison keys, canonical title included
	Enabled        bool
}

type aliasRef struct {
	key   string // normalized alias
	title string
}

// Snapshot is an immutable view of the enabled catalog, safe for
// concurrent readers. Aliases are pre-sorted longest first so a series-root
// alias cannot shadow a more specific numbered one.
type Snapshot struct {
	entries []Entry
	byAlias map[string]string
	aliases []aliasRef
}

var aliasSplit = regexp.MustCompile(`[、,，/／・;；|\s]+`)

func buildSnapshot(t *store.Table) *Snapshot {
	s := &Snapshot{byAlias: make(map[string]string)}
	for _, row := range t.Rows {
		title := strings.TrimSpace(row.Get(constants.ColCanonicalTitle))
		if title == "" || !truthy(row.Get(constants.ColEnabled)) {
			continue
		}
		e := Entry{CanonicalTitle: title, Enabled: true}
		seen := make(map[string]bool)
		for _, raw := range append([]string{title}, aliasSplit.Split(row.Get(constants.ColAliases), -1)...) {
			key := normalize.Key(raw)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			e.Aliases = append(e.Aliases, key)
			// first writer wins on alias collisions across titles
			if _, dup := s.byAlias[key]; !dup {
				s.byAlias[key] = title
			}
			s.aliases = append(s.aliases, aliasRef{key: key, title: title})
		}
		s.entries = append(s.entries, e)
	}
	sort.SliceStable(s.aliases, func(i, j int) bool {
		return len([]rune(s.aliases[i].key)) > len([]rune(s.aliases[j].key))
	})
	return s
}

// Titles returns the canonical titles of all enabled entries.
func (s *Snapshot) Titles() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.CanonicalTitle
	}
	return out
}

// truthy interprets the 啟用 column; an empty cell means enabled.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "y", "yes", "true", "1", "是", "啟用", "v":
		return true
	default:
		return false
	}
}

// Cache hands out Snapshots with a bounded lifetime. Refresh is a full
// rebuild followed by an atomic pointer swap; readers never see a
// half-loaded table.
type Cache struct {
	store  store.RowStore
	sheet  string
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex // serializes refresh, not reads
	cur     atomic.Pointer[Snapshot]
	expires atomic.Int64 // unix nanos
}

func NewCache(st store.RowStore, sheet string, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if sheet == "" {
		sheet = constants.SheetCatalog
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{store: st, sheet: sheet, ttl: ttl, logger: logger}
}

// Snapshot returns the current catalog view, reloading it when expired.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if s := c.cur.Load(); s != nil && time.Now().UnixNano() < c.expires.Load() {
		return s, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// re-check after winning the lock
	if s := c.cur.Load(); s != nil && time.Now().UnixNano() < c.expires.Load() {
		return s, nil
	}
	t, err := c.store.ReadAll(ctx, c.sheet)
	if err != nil {
		if s := c.cur.Load(); s != nil {
			c.logger.Warn("catalog.refresh.failed, serving stale", "error", err)
			return s, nil
		}
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	s := buildSnapshot(t)
	c.cur.Store(s)
	c.expires.Store(time.Now().Add(c.ttl).UnixNano())
	c.logger.Info("catalog.refresh.ok", "entries", len(s.entries), "aliases", len(s.aliases))
	return s, nil
}
