package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/catalog"
	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/geo"
	"github.com/meihsieh/bookship-bot/internal/parse"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// State is the composer outcome for one resolution pass.
type State int

const (
	Confirmed State = iota
	AwaitingConfirmation
	Rejected
)

// Outcome reports one pass through Draft→Resolving. Side effects (the
// store write) happen only on the Confirmed transition.
type Outcome struct {
	State    State
	RecordID string
	Records  []Record

	// AwaitingConfirmation, disambiguation flavor: which book token is
	// ambiguous, and between what.
	TokenIndex int
	Candidates []string

	// AwaitingConfirmation, proposal flavor: every token resolved but at
	// least one only fuzzily; the fully resolved title list awaits a Y/N
	// before anything persists.
	Proposal []string

	// Rejected: user-facing reason.
	Reason string
}

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// Composer validates drafts, resolves them against the catalog and zip
// tables, and writes the resulting row batch. Synchronous and CPU-bound:
// all I/O goes through the injected store.
type Composer struct {
	store   store.RowStore
	catalog *catalog.Cache
	geo     *geo.Cache
	cfg     common.EngineConfig
	sheets  common.StoreConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewComposer(st store.RowStore, cat *catalog.Cache, g *geo.Cache, cfg common.EngineConfig, sheets common.StoreConfig, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.Local
	}
	return &Composer{
		store:   st,
		catalog: cat,
		geo:     g,
		cfg:     cfg,
		sheets:  sheets,
		logger:  logger,
		now:     func() time.Time { return time.Now().In(loc) },
	}
}

// Compose runs one Resolving pass over a validated draft. Every token must
// resolve unambiguously for the order to persist; the first Ambiguous
// token parks the pass, any NotFound token rejects it.
func (c *Composer) Compose(ctx context.Context, userID string, d *parse.Draft) (*Outcome, error) {
	cat, err := c.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(d.BookTokens))
	anyFuzzy := false
	for i, tok := range d.BookTokens {
		res := cat.Resolve(tok, c.cfg.FuzzyThreshold, c.cfg.MaxCandidates)
		switch res.Kind {
		case catalog.Resolved:
			titles[i] = res.Title
			anyFuzzy = anyFuzzy || res.Fuzzy
		case catalog.Ambiguous:
			return &Outcome{State: AwaitingConfirmation, TokenIndex: i, Candidates: res.Candidates}, nil
		default:
			return &Outcome{
				State:  Rejected,
				Reason: fmt.Sprintf("找不到書目「%s」，請確認書名或先更新書目主檔。", tok),
			}, nil
		}
	}
	if anyFuzzy {
		// fuzzy hits are suggestions, not certainties; hold for a Y/N
		return &Outcome{State: AwaitingConfirmation, Proposal: titles}, nil
	}

	return c.Finalize(ctx, userID, d, titles)
}

// Finalize is the confirmed re-entry into Resolving→Confirmed: the titles
// are settled (directly, by Y on a proposal, or by a disambiguation pick),
// so prefix the address and persist.
func (c *Composer) Finalize(ctx context.Context, userID string, d *parse.Draft, titles []string) (*Outcome, error) {
	address := d.Address
	if address != "" && c.cfg.WriteZipToAddr {
		zt, err := c.geo.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		address = zt.PrefixAddress(address)
	}
	return c.persist(ctx, userID, d, titles, address)
}

// persist is the Resolving→Confirmed transition: allocate the shared
// identifier and write one row per book as a single head-insert batch, so
// store read-order reproduces the user's book order. The scan and the
// insert run under one store lock; concurrent webhook events must not
// allocate the same identifier for distinct logical orders.
func (c *Composer) persist(ctx context.Context, userID string, d *parse.Draft, titles []string, address string) (*Outcome, error) {
	now := c.now().Format(timestampLayout)
	records := make([]Record, len(titles))
	var recordID string

	err := c.store.Locked(ctx, func(s store.RowStore) error {
		t, err := s.ReadAll(ctx, c.sheets.OrdersSheet)
		if err != nil {
			return common.WrapError(err, "read orders")
		}
		recordID = NextRecordID(t)

		cells := make([]map[string]string, len(titles))
		for i, title := range titles {
			records[i] = Record{
				CreatedAt: now,
				CreatedBy: userID,
				RecordID:  recordID,
				Recipient: d.Recipient,
				Phone:     d.Phone,
				Address:   address,
				BookTitle: title,
				Note:      d.Note,
				Delivery:  d.Delivery,
				Status:    constants.StatusPending,
			}
			cells[i] = records[i].toCells()
		}
		if err := s.InsertRowsTop(ctx, c.sheets.OrdersSheet, cells); err != nil {
			return common.NewAppError("ORDER_WRITE", "insert order rows", common.ErrPartialWrite)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("order.create.ok",
		"record_id", recordID, "books", len(titles), "created_by", userID)
	return &Outcome{State: Confirmed, RecordID: recordID, Records: records}, nil
}

// Query returns order groups matching keyword within the query window.
// Keyword may be a record ID, part of a recipient name, or a phone suffix;
// empty keyword lists everything in the window.
func (c *Composer) Query(ctx context.Context, keyword string) ([]Group, error) {
	t, err := c.store.ReadAll(ctx, c.sheets.OrdersSheet)
	if err != nil {
		return nil, common.WrapError(err, "read orders")
	}
	cutoff := c.now().AddDate(0, 0, -c.cfg.QueryDays)
	keyword = strings.TrimSpace(keyword)
	kwUpper := strings.ToUpper(keyword)
	kwDigits := digitsOnly(keyword)

	var records []Record
	for _, row := range t.Rows {
		r := fromRow(row)
		if r.RecordID == "" || r.Status == constants.StatusDeleted {
			continue
		}
		if created, err := time.ParseInLocation(timestampLayout, r.CreatedAt, c.now().Location()); err == nil {
			if created.Before(cutoff) {
				continue
			}
		}
		if keyword != "" && !matches(r, keyword, kwUpper, kwDigits, c.cfg.PhoneSuffixLen) {
			continue
		}
		records = append(records, r)
	}
	return groupRecords(records), nil
}

func matches(r Record, keyword, kwUpper, kwDigits string, suffixLen int) bool {
	if r.RecordID == kwUpper {
		return true
	}
	if strings.Contains(r.Recipient, keyword) {
		return true
	}
	if len(kwDigits) >= suffixLen && strings.HasSuffix(digitsOnly(r.Phone), kwDigits) {
		return true
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindCancelable locates the single cancelable group addressed by keyword.
// An exact record ID bypasses the query window — an order stays cancelable
// for as long as it is Pending, however old. Name and phone-suffix lookups
// go through the windowed query. A group with any shipped row is rejected;
// Deleted groups are invisible.
func (c *Composer) FindCancelable(ctx context.Context, keyword string) (Group, error) {
	keyword = strings.TrimSpace(keyword)
	if id := strings.ToUpper(keyword); recordIDPattern.MatchString(id) {
		t, err := c.store.ReadAll(ctx, c.sheets.OrdersSheet)
		if err != nil {
			return Group{}, common.WrapError(err, "read orders")
		}
		g, ok := liveGroup(t, id)
		if !ok {
			return Group{}, common.NewAppError("CANCEL", "no matching order", common.ErrNotFound)
		}
		return validateCancelable(g)
	}

	groups, err := c.Query(ctx, keyword)
	if err != nil {
		return Group{}, err
	}
	if len(groups) == 0 {
		return Group{}, common.NewAppError("CANCEL", "no matching order", common.ErrNotFound)
	}
	if len(groups) > 1 {
		return Group{}, common.NewAppError("CANCEL", fmt.Sprintf("%d orders match", len(groups)), common.ErrAmbiguous)
	}
	return validateCancelable(groups[0])
}

func validateCancelable(g Group) (Group, error) {
	if g.AnyShipped() {
		return Group{}, common.NewAppError("CANCEL", "order already shipped", common.ErrValidation)
	}
	if !g.AllPending() {
		return Group{}, common.NewAppError("CANCEL", "order not cancelable", common.ErrValidation)
	}
	return g, nil
}

// CancelByID re-locates the group by record ID and cancels it in one locked
// pass, so row indexes cannot be shifted by a concurrent insert between the
// read and the writes. Every row goes to Deleted with an audit note;
// all-or-nothing in intent — if the store fails partway there is no
// rollback, the caller surfaces the correlation code.
func (c *Composer) CancelByID(ctx context.Context, recordID, userID string) (Group, error) {
	recordID = strings.ToUpper(strings.TrimSpace(recordID))
	stamp := fmt.Sprintf("（%s 取消 by %s）", c.now().Format(timestampLayout), userID)
	var g Group

	err := c.store.Locked(ctx, func(s store.RowStore) error {
		t, err := s.ReadAll(ctx, c.sheets.OrdersSheet)
		if err != nil {
			return common.WrapError(err, "read orders")
		}
		var ok bool
		g, ok = liveGroup(t, recordID)
		if !ok {
			return common.NewAppError("CANCEL", "no matching order", common.ErrNotFound)
		}
		if _, err := validateCancelable(g); err != nil {
			return err
		}
		for _, r := range g.Records {
			if err := s.UpdateCell(ctx, c.sheets.OrdersSheet, r.RowIndex, constants.ColStatus, string(constants.StatusDeleted)); err != nil {
				return common.NewAppError("CANCEL_WRITE", "update status", common.ErrPartialWrite)
			}
			note := strings.TrimSpace(r.Note + stamp)
			if err := s.UpdateCell(ctx, c.sheets.OrdersSheet, r.RowIndex, constants.ColNote, note); err != nil {
				return common.NewAppError("CANCEL_WRITE", "update note", common.ErrPartialWrite)
			}
		}
		return nil
	})
	if err != nil {
		return Group{}, err
	}
	c.logger.Info("order.cancel.ok", "record_id", g.RecordID, "rows", len(g.Records), "by", userID)
	return g, nil
}

// UndoShipment reverts a shipped group to Pending and clears the shipment
// columns. Locate and update run under one store lock so the row indexes
// cannot go stale mid-operation.
func (c *Composer) UndoShipment(ctx context.Context, recordID, userID string) (Group, error) {
	recordID = strings.ToUpper(strings.TrimSpace(recordID))
	var g Group

	err := c.store.Locked(ctx, func(s store.RowStore) error {
		t, err := s.ReadAll(ctx, c.sheets.OrdersSheet)
		if err != nil {
			return common.WrapError(err, "read orders")
		}
		g = Group{RecordID: recordID}
		for _, row := range t.Rows {
			r := fromRow(row)
			if r.RecordID == recordID {
				g.Records = append(g.Records, r)
			}
		}
		if len(g.Records) == 0 {
			return common.NewAppError("UNDO", "record id not found", common.ErrNotFound)
		}
		for _, r := range g.Records {
			if !constants.CanTransition(r.Status, constants.StatusPending) {
				return common.NewAppError("UNDO", "order has not shipped", common.ErrValidation)
			}
		}
		for _, r := range g.Records {
			for col, v := range map[string]string{
				constants.ColStatus:   string(constants.StatusPending),
				constants.ColShipDate: "",
				constants.ColTracking: "",
				constants.ColHandler:  "",
			} {
				if err := s.UpdateCell(ctx, c.sheets.OrdersSheet, r.RowIndex, col, v); err != nil {
					return common.NewAppError("UNDO_WRITE", "clear shipment", common.ErrPartialWrite)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Group{}, err
	}
	c.logger.Info("order.undo_ship.ok", "record_id", recordID, "rows", len(g.Records), "by", userID)
	return g, nil
}
