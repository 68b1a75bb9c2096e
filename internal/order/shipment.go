package order

import (
	"context"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/ocr"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// ShipmentReport summarizes applying one OCR reconciliation pass.
type ShipmentReport struct {
	Updated  []ocr.Pair // pairs that marked at least one row shipped
	NotFound []ocr.Pair // identifier had no pending rows in the sheet
}

// ApplyShipment writes reconciled (recordID, tracking) pairs back to the
// orders sheet: every Pending row of the group gets the tracking number,
// today's date, the acting user, and Shipped status. Pairs whose record ID
// has no pending rows are reported, not dropped. The whole pass runs under
// one store lock so a concurrent insert cannot shift the rows being
// updated.
func (c *Composer) ApplyShipment(ctx context.Context, pairs []ocr.Pair, userID string) (*ShipmentReport, error) {
	report := &ShipmentReport{}
	if len(pairs) == 0 {
		return report, nil
	}
	today := c.now().Format(dateLayout)

	err := c.store.Locked(ctx, func(s store.RowStore) error {
		t, err := s.ReadAll(ctx, c.sheets.OrdersSheet)
		if err != nil {
			return common.WrapError(err, "read orders")
		}
		pending := make(map[string][]Record)
		for _, row := range t.Rows {
			r := fromRow(row)
			if r.Status == constants.StatusPending && r.RecordID != "" {
				pending[r.RecordID] = append(pending[r.RecordID], r)
			}
		}

		for _, p := range pairs {
			rows, ok := pending[p.RecordID]
			if !ok {
				report.NotFound = append(report.NotFound, p)
				continue
			}
			for _, r := range rows {
				for col, v := range map[string]string{
					constants.ColTracking: p.Tracking,
					constants.ColShipDate: today,
					constants.ColHandler:  userID,
					constants.ColStatus:   string(constants.StatusShipped),
				} {
					if err := s.UpdateCell(ctx, c.sheets.OrdersSheet, r.RowIndex, col, v); err != nil {
						return common.NewAppError("SHIP_WRITE", "update shipment", common.ErrPartialWrite)
					}
				}
			}
			report.Updated = append(report.Updated, p)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	c.logger.Info("order.ship.ok",
		"pairs", len(pairs), "updated", len(report.Updated), "unmatched", len(report.NotFound), "by", userID)
	return report, nil
}
