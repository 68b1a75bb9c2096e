// Package order composes validated drafts into linked sheet rows and owns
// every status transition on them.
package order

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// Record is one (order, book) row of the orders sheet. All rows of one
// logical order share a RecordID and are treated as a unit.
type Record struct {
	RowIndex  int // sheet row the record was read from; 0 for unwritten records
	CreatedAt string
	CreatedBy string
	RecordID  string
	Recipient string
	Phone     string
	Address   string
	BookTitle string
	Note      string
	Delivery  constants.DeliveryMethod
	ShipDate  string
	Tracking  string
	Handler   string
	Status    constants.OrderStatus
}

func fromRow(r store.Row) Record {
	return Record{
		RowIndex:  r.Index,
		CreatedAt: r.Get(constants.ColCreatedAt),
		CreatedBy: r.Get(constants.ColCreatedBy),
		RecordID:  r.Get(constants.ColRecordID),
		Recipient: r.Get(constants.ColRecipient),
		Phone:     r.Get(constants.ColPhone),
		Address:   r.Get(constants.ColAddress),
		BookTitle: r.Get(constants.ColBookTitle),
		Note:      r.Get(constants.ColNote),
		Delivery:  constants.DeliveryMethod(r.Get(constants.ColDelivery)),
		ShipDate:  r.Get(constants.ColShipDate),
		Tracking:  r.Get(constants.ColTracking),
		Handler:   r.Get(constants.ColHandler),
		Status:    constants.OrderStatus(r.Get(constants.ColStatus)),
	}
}

func (r Record) toCells() map[string]string {
	return map[string]string{
		constants.ColCreatedAt: r.CreatedAt,
		constants.ColCreatedBy: r.CreatedBy,
		constants.ColRecordID:  r.RecordID,
		constants.ColRecipient: r.Recipient,
		constants.ColPhone:     r.Phone,
		constants.ColAddress:   r.Address,
		constants.ColBookTitle: r.BookTitle,
		constants.ColNote:      r.Note,
		constants.ColDelivery:  string(r.Delivery),
		constants.ColShipDate:  r.ShipDate,
		constants.ColTracking:  r.Tracking,
		constants.ColHandler:   r.Handler,
		constants.ColStatus:    string(r.Status),
	}
}

var recordIDPattern = regexp.MustCompile(`^R(\d{4})$`)

// NextRecordID derives the next shared identifier by scanning the existing
// column for the current maximum. Malformed identifiers are skipped.
func NextRecordID(t *store.Table) string {
	max := 0
	for _, row := range t.Rows {
		m := recordIDPattern.FindStringSubmatch(row.Get(constants.ColRecordID))
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("R%04d", max+1)
}

// Group is all records sharing one RecordID, in sheet order.
type Group struct {
	RecordID string
	Records  []Record
}

// Titles lists the group's book titles in sheet order.
func (g Group) Titles() []string {
	out := make([]string, len(g.Records))
	for i, r := range g.Records {
		out[i] = r.BookTitle
	}
	return out
}

// AllPending reports whether every row of the group is still Pending.
func (g Group) AllPending() bool {
	for _, r := range g.Records {
		if r.Status != constants.StatusPending {
			return false
		}
	}
	return true
}

// AnyShipped reports whether any row of the group has shipped.
func (g Group) AnyShipped() bool {
	for _, r := range g.Records {
		if r.Status == constants.StatusShipped {
			return true
		}
	}
	return false
}

// liveGroup collects the non-deleted rows sharing recordID, in sheet order.
func liveGroup(t *store.Table, recordID string) (Group, bool) {
	g := Group{RecordID: recordID}
	for _, row := range t.Rows {
		r := fromRow(row)
		if r.RecordID == recordID && r.Status != constants.StatusDeleted {
			g.Records = append(g.Records, r)
		}
	}
	return g, len(g.Records) > 0
}

// groupRecords merges records into per-RecordID groups, preserving the
// order groups first appear in the sheet.
func groupRecords(records []Record) []Group {
	byID := make(map[string]int)
	var groups []Group
	for _, r := range records {
		if r.RecordID == "" {
			continue
		}
		i, ok := byID[r.RecordID]
		if !ok {
			i = len(groups)
			byID[r.RecordID] = i
			groups = append(groups, Group{RecordID: r.RecordID})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
