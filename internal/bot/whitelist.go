package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// Whitelist is the access gate. Membership lives in the whitelist sheet
// and is cached for a bounded lifetime; admin IDs from config always pass.
// With mode "off" everyone is authorized.
type Whitelist struct {
	store  store.RowStore
	cfg    common.LineConfig
	logger *slog.Logger

	mu      sync.Mutex
	members map[string]bool
	expires time.Time
}

func NewWhitelist(st store.RowStore, cfg common.LineConfig, logger *slog.Logger) *Whitelist {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WhitelistTTL <= 0 {
		cfg.WhitelistTTL = 5 * time.Minute
	}
	return &Whitelist{store: st, cfg: cfg, logger: logger}
}

// Authorized reports whether userID may use gated commands.
func (w *Whitelist) Authorized(ctx context.Context, userID string) bool {
	if w.cfg.WhitelistMode != "on" {
		return true
	}
	if userID == "" {
		return false
	}
	if w.cfg.AdminUserIDs[userID] {
		return true
	}
	return w.memberSet(ctx)[userID]
}

func (w *Whitelist) memberSet(ctx context.Context) map[string]bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.members != nil && time.Now().Before(w.expires) {
		return w.members
	}
	t, err := w.store.ReadAll(ctx, constants.SheetWhitelist)
	if err != nil {
		w.logger.Warn("whitelist.load.failed, serving stale", "error", err)
		if w.members == nil {
			return map[string]bool{}
		}
		return w.members
	}
	members := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		if id := strings.TrimSpace(row.Get(constants.ColUserID)); id != "" {
			members[id] = true
		}
	}
	w.members = members
	w.expires = time.Now().Add(w.cfg.WhitelistTTL)
	w.logger.Info("whitelist.load.ok", "members", len(members))
	return w.members
}

// LogCandidate records a user who asked for their ID, so an admin can add
// them to the whitelist later. Best effort.
func (w *Whitelist) LogCandidate(ctx context.Context, userID, name string) {
	row := map[string]string{
		constants.ColUserID:   userID,
		constants.ColUserName: name,
		constants.ColSeenAt:   time.Now().Format("2006-01-02 15:04:05"),
	}
	if err := w.store.AppendRows(ctx, constants.SheetCandidates, []map[string]string{row}); err != nil {
		w.logger.Warn("candidate.log.failed", "error", err)
	}
}
