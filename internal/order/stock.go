package order

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/catalog"
	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/parse"
)

// StockItem is one resolved stock-adjust delta.
type StockItem struct {
	Title string
	Delta int
}

// StockOutcome mirrors the order composer outcome for stock messages.
type StockOutcome struct {
	State      State
	Items      []StockItem
	TokenIndex int
	Candidates []string
	Reason     string
}

// ResolveStock resolves every stock line's book token. Like order
// composition, the first ambiguous token parks the pass for
// disambiguation and any unknown token rejects it.
func (c *Composer) ResolveStock(ctx context.Context, lines []parse.StockLine) (*StockOutcome, error) {
	cat, err := c.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]StockItem, len(lines))
	for i, line := range lines {
		res := cat.Resolve(line.BookToken, c.cfg.FuzzyThreshold, c.cfg.MaxCandidates)
		switch res.Kind {
		case catalog.Resolved:
			items[i] = StockItem{Title: res.Title, Delta: line.Delta}
		case catalog.Ambiguous:
			return &StockOutcome{State: AwaitingConfirmation, TokenIndex: i, Candidates: res.Candidates}, nil
		default:
			return &StockOutcome{
				State:  Rejected,
				Reason: fmt.Sprintf("找不到書目「%s」，入庫取消。", line.BookToken),
			}, nil
		}
	}
	return &StockOutcome{State: Confirmed, Items: items}, nil
}

// WriteStock appends the accumulated delta rows to the stock-in sheet.
// Called only after the user confirms.
func (c *Composer) WriteStock(ctx context.Context, items []StockItem, userID string) error {
	rows := make([]map[string]string, len(items))
	now := c.now().Format(timestampLayout)
	for i, it := range items {
		rows[i] = map[string]string{
			constants.ColStockTime:    now,
			constants.ColStockHandler: userID,
			constants.ColStockTitle:   it.Title,
			constants.ColStockQty:     strconv.Itoa(it.Delta),
			constants.ColStockNote:    "",
		}
	}
	if err := c.store.AppendRows(ctx, c.sheets.StockInSheet, rows); err != nil {
		return common.NewAppError("STOCK_WRITE", "append stock rows", common.ErrPartialWrite)
	}
	c.logger.Info("stock.write.ok", "items", len(items), "by", userID)
	return nil
}

// History appends one audit row for a confirmed mutating action.
func (c *Composer) History(ctx context.Context, userID, action, detail string) {
	row := map[string]string{
		constants.ColHistTime:   c.now().Format(timestampLayout),
		constants.ColHistUser:   userID,
		constants.ColHistAction: action,
		constants.ColHistDetail: detail,
	}
	if err := c.store.AppendRows(ctx, c.sheets.HistorySheet, []map[string]string{row}); err != nil {
		// history is best-effort; the primary write already succeeded
		c.logger.Warn("history.append.failed", "action", action, "error", err)
	}
}
