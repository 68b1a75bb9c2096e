package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/catalog"
	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/geo"
	"github.com/meihsieh/bookship-bot/internal/ocr"
	"github.com/meihsieh/bookship-bot/internal/parse"
	"github.com/meihsieh/bookship-bot/internal/store"
	"github.com/meihsieh/bookship-bot/internal/store/storetest"
)

func testSheets() common.StoreConfig {
	return common.StoreConfig{
		OrdersSheet:  constants.SheetOrders,
		CatalogSheet: constants.SheetCatalog,
		ZipRefSheet:  constants.SheetZipRef,
		StockInSheet: constants.SheetStockIn,
		HistorySheet: constants.SheetHistory,
	}
}

func testEngine() common.EngineConfig {
	return common.EngineConfig{
		FuzzyThreshold: 0.6,
		QueryDays:      30,
		PhoneSuffixLen: 9,
		WriteZipToAddr: true,
		RefDataTTL:     time.Minute,
		MaxCandidates:  10,
	}
}

func newTestComposer(t *testing.T) (*Composer, *storetest.Mem) {
	t.Helper()
	st := storetest.NewMem()
	st.Sheets[constants.SheetCatalog] = []map[string]string{
		{constants.ColCanonicalTitle: "心經抄本", constants.ColAliases: "心經", constants.ColEnabled: ""},
		{constants.ColCanonicalTitle: "金剛經抄本", constants.ColAliases: "金剛經", constants.ColEnabled: ""},
		{constants.ColCanonicalTitle: "靜思語錄", constants.ColAliases: "", constants.ColEnabled: ""},
	}
	st.Sheets[constants.SheetZipRef] = []map[string]string{
		{constants.ColZipArea: "台北市中正區", constants.ColZipCode: "10001"},
	}
	cat := catalog.NewCache(st, constants.SheetCatalog, time.Minute, nil)
	zt := geo.NewCache(st, constants.SheetZipRef, time.Minute, nil)
	return NewComposer(st, cat, zt, testEngine(), testSheets(), nil), st
}

func testDraft(tokens ...string) *parse.Draft {
	return &parse.Draft{
		Recipient:  "王小明",
		Phone:      "0912345678",
		Address:    "台北市中正區八德路一段1號",
		BookTokens: tokens,
		Delivery:   constants.DeliveryTCat,
	}
}

func TestComposeCreatesLinkedRows(t *testing.T) {
	c, st := newTestComposer(t)
	out, err := c.Compose(context.Background(), "Uabc", testDraft("心經", "金剛經", "靜思語錄"))
	require.NoError(t, err)
	require.Equal(t, Confirmed, out.State)
	assert.Equal(t, "R0001", out.RecordID)
	require.Len(t, out.Records, 3)

	rows := st.Sheets[constants.SheetOrders]
	require.Len(t, rows, 3)
	// sheet order reproduces the user's book order
	assert.Equal(t, "心經抄本", rows[0][constants.ColBookTitle])
	assert.Equal(t, "金剛經抄本", rows[1][constants.ColBookTitle])
	assert.Equal(t, "靜思語錄", rows[2][constants.ColBookTitle])
	for _, r := range rows {
		assert.Equal(t, "R0001", r[constants.ColRecordID])
		assert.Equal(t, string(constants.StatusPending), r[constants.ColStatus])
		assert.Equal(t, "Uabc", r[constants.ColCreatedBy])
		assert.Equal(t, "10001 台北市中正區八德路一段1號", r[constants.ColAddress])
	}
}

func TestComposeAllocatesNextRecordID(t *testing.T) {
	c, _ := newTestComposer(t)
	out1, err := c.Compose(context.Background(), "U1", testDraft("心經"))
	require.NoError(t, err)
	out2, err := c.Compose(context.Background(), "U1", testDraft("金剛經"))
	require.NoError(t, err)
	assert.Equal(t, "R0001", out1.RecordID)
	assert.Equal(t, "R0002", out2.RecordID)
}

func TestComposeConcurrentCreatesAllocateDistinctIDs(t *testing.T) {
	c, st := newTestComposer(t)
	// warm the reference caches, then stretch the read-scan-insert window
	_, err := c.Compose(context.Background(), "U0", testDraft("靜思語錄"))
	require.NoError(t, err)
	st.ReadDelay = 5 * time.Millisecond

	const n = 4
	var wg sync.WaitGroup
	outs := make([]*Outcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = c.Compose(context.Background(), "U1", testDraft("心經"))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{"R0001": true}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[outs[i].RecordID], "record id %s allocated twice", outs[i].RecordID)
		seen[outs[i].RecordID] = true
	}
	assert.Len(t, st.Sheets[constants.SheetOrders], n+1)
}

func TestComposeFuzzyYieldsProposal(t *testing.T) {
	c, st := newTestComposer(t)
	out, err := c.Compose(context.Background(), "U1", testDraft("靜思語綠"))
	require.NoError(t, err)
	require.Equal(t, AwaitingConfirmation, out.State)
	assert.Equal(t, []string{"靜思語錄"}, out.Proposal)
	assert.Empty(t, st.Sheets[constants.SheetOrders], "nothing persists before the Y")
}

func TestComposeNotFoundRejected(t *testing.T) {
	c, st := newTestComposer(t)
	out, err := c.Compose(context.Background(), "U1", testDraft("不存在的書"))
	require.NoError(t, err)
	require.Equal(t, Rejected, out.State)
	assert.Contains(t, out.Reason, "不存在的書")
	assert.Empty(t, st.Sheets[constants.SheetOrders])
}

func TestNextRecordID(t *testing.T) {
	mk := func(ids ...string) *store.Table {
		t := &store.Table{}
		for i, id := range ids {
			t.Rows = append(t.Rows, store.Row{Index: i + 2, Cells: map[string]string{constants.ColRecordID: id}})
		}
		return t
	}
	assert.Equal(t, "R0001", NextRecordID(mk()))
	assert.Equal(t, "R0013", NextRecordID(mk("R0012", "R0003", "R0012")))
	assert.Equal(t, "R0008", NextRecordID(mk("R0007", "garbage", "")))
}

func seedOrder(st *storetest.Mem, recordID, recipient, phone, createdAt string, status constants.OrderStatus, titles ...string) {
	for _, title := range titles {
		st.Sheets[constants.SheetOrders] = append(st.Sheets[constants.SheetOrders], map[string]string{
			constants.ColCreatedAt: createdAt,
			constants.ColRecordID:  recordID,
			constants.ColRecipient: recipient,
			constants.ColPhone:     phone,
			constants.ColBookTitle: title,
			constants.ColStatus:    string(status),
		})
	}
}

func TestQuery(t *testing.T) {
	c, st := newTestComposer(t)
	now := time.Now().Format(timestampLayout)
	old := time.Now().AddDate(0, 0, -60).Format(timestampLayout)
	seedOrder(st, "R0001", "王小明", "0912345678", now, constants.StatusPending, "心經抄本", "金剛經抄本")
	seedOrder(st, "R0002", "林美玲", "0987654321", now, constants.StatusShipped, "靜思語錄")
	seedOrder(st, "R0003", "王大同", "0911111111", now, constants.StatusDeleted, "心經抄本")
	seedOrder(st, "R0004", "王小明", "0912345678", old, constants.StatusPending, "心經抄本")

	groups, err := c.Query(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, groups, 2, "deleted and out-of-window orders are invisible")
	assert.Equal(t, "R0001", groups[0].RecordID)
	assert.Equal(t, []string{"心經抄本", "金剛經抄本"}, groups[0].Titles())

	groups, err = c.Query(context.Background(), "r0001")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "R0001", groups[0].RecordID)

	groups, err = c.Query(context.Background(), "美玲")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "R0002", groups[0].RecordID)

	// phone suffix, at least PhoneSuffixLen digits
	groups, err = c.Query(context.Background(), "987654321")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "R0002", groups[0].RecordID)

	groups, err = c.Query(context.Background(), "678")
	require.NoError(t, err)
	assert.Empty(t, groups, "short digit runs never suffix-match")
}

func TestFindCancelable(t *testing.T) {
	c, st := newTestComposer(t)
	now := time.Now().Format(timestampLayout)
	seedOrder(st, "R0001", "王小明", "0912345678", now, constants.StatusPending, "心經抄本")
	seedOrder(st, "R0002", "林美玲", "0987654321", now, constants.StatusShipped, "靜思語錄")
	seedOrder(st, "R0003", "王大同", "0911111111", now, constants.StatusPending, "心經抄本")

	g, err := c.FindCancelable(context.Background(), "R0001")
	require.NoError(t, err)
	assert.Equal(t, "R0001", g.RecordID)

	_, err = c.FindCancelable(context.Background(), "R0002")
	assert.ErrorIs(t, err, common.ErrValidation, "shipped orders cannot be cancelled")

	_, err = c.FindCancelable(context.Background(), "R9999")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = c.FindCancelable(context.Background(), "王")
	assert.ErrorIs(t, err, common.ErrAmbiguous)
}

func TestFindCancelableOldPendingByRecordID(t *testing.T) {
	c, st := newTestComposer(t)
	old := time.Now().AddDate(0, 0, -60).Format(timestampLayout)
	seedOrder(st, "R0001", "王小明", "0912345678", old, constants.StatusPending, "心經抄本")

	// a Pending order stays cancelable by record ID however old it is
	g, err := c.FindCancelable(context.Background(), "R0001")
	require.NoError(t, err)
	assert.Equal(t, "R0001", g.RecordID)

	// name addressing still goes through the windowed query
	_, err = c.FindCancelable(context.Background(), "王小明")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCancelByID(t *testing.T) {
	c, st := newTestComposer(t)
	now := time.Now().Format(timestampLayout)
	seedOrder(st, "R0001", "王小明", "0912345678", now, constants.StatusPending, "心經抄本", "金剛經抄本")
	seedOrder(st, "R0002", "林美玲", "0987654321", now, constants.StatusPending, "靜思語錄")

	g, err := c.CancelByID(context.Background(), "r0001", "Uop")
	require.NoError(t, err)
	assert.Equal(t, "R0001", g.RecordID)

	rows := st.Sheets[constants.SheetOrders]
	assert.Equal(t, string(constants.StatusDeleted), rows[0][constants.ColStatus])
	assert.Equal(t, string(constants.StatusDeleted), rows[1][constants.ColStatus])
	assert.Contains(t, rows[0][constants.ColNote], "取消 by Uop")
	// the other group is untouched
	assert.Equal(t, string(constants.StatusPending), rows[2][constants.ColStatus])

	// a cancelled group is gone; a shipped one is rejected
	_, err = c.CancelByID(context.Background(), "R0001", "Uop")
	assert.ErrorIs(t, err, common.ErrNotFound)
	seedOrder(st, "R0003", "陳大文", "0922333444", now, constants.StatusShipped, "心經抄本")
	_, err = c.CancelByID(context.Background(), "R0003", "Uop")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestApplyShipment(t *testing.T) {
	c, st := newTestComposer(t)
	now := time.Now().Format(timestampLayout)
	seedOrder(st, "R0001", "王小明", "0912345678", now, constants.StatusPending, "心經抄本", "金剛經抄本")

	report, err := c.ApplyShipment(context.Background(), []ocr.Pair{
		{RecordID: "R0001", Tracking: "123456789012"},
		{RecordID: "R0099", Tracking: "999999999999"},
	}, "Uship")
	require.NoError(t, err)
	require.Len(t, report.Updated, 1)
	require.Len(t, report.NotFound, 1)
	assert.Equal(t, "R0099", report.NotFound[0].RecordID)

	for _, r := range st.Sheets[constants.SheetOrders] {
		assert.Equal(t, string(constants.StatusShipped), r[constants.ColStatus])
		assert.Equal(t, "123456789012", r[constants.ColTracking])
		assert.Equal(t, "Uship", r[constants.ColHandler])
		assert.NotEmpty(t, r[constants.ColShipDate])
	}
}

func TestUndoShipment(t *testing.T) {
	c, st := newTestComposer(t)
	now := time.Now().Format(timestampLayout)
	seedOrder(st, "R0001", "王小明", "0912345678", now, constants.StatusShipped, "心經抄本")
	st.Sheets[constants.SheetOrders][0][constants.ColTracking] = "123456789012"
	st.Sheets[constants.SheetOrders][0][constants.ColShipDate] = "2026-08-01"
	seedOrder(st, "R0002", "林美玲", "0987654321", now, constants.StatusPending, "靜思語錄")

	g, err := c.UndoShipment(context.Background(), "r0001", "Uop")
	require.NoError(t, err)
	assert.Equal(t, "R0001", g.RecordID)

	r := st.Sheets[constants.SheetOrders][0]
	assert.Equal(t, string(constants.StatusPending), r[constants.ColStatus])
	assert.Empty(t, r[constants.ColTracking])
	assert.Empty(t, r[constants.ColShipDate])

	_, err = c.UndoShipment(context.Background(), "R0002", "Uop")
	assert.ErrorIs(t, err, common.ErrValidation, "only shipped orders can be reverted")
}

func TestResolveStockAndWrite(t *testing.T) {
	c, st := newTestComposer(t)
	out, err := c.ResolveStock(context.Background(), []parse.StockLine{
		{BookToken: "心經", Delta: 10},
		{BookToken: "金剛經", Delta: -2},
	})
	require.NoError(t, err)
	require.Equal(t, Confirmed, out.State)
	require.Len(t, out.Items, 2)
	assert.Equal(t, StockItem{Title: "心經抄本", Delta: 10}, out.Items[0])

	require.NoError(t, c.WriteStock(context.Background(), out.Items, "Ustock"))
	rows := st.Sheets[constants.SheetStockIn]
	require.Len(t, rows, 2)
	assert.Equal(t, "10", rows[0][constants.ColStockQty])
	assert.Equal(t, "-2", rows[1][constants.ColStockQty])
	assert.Equal(t, "Ustock", rows[0][constants.ColStockHandler])
}

func TestResolveStockUnknownToken(t *testing.T) {
	c, _ := newTestComposer(t)
	out, err := c.ResolveStock(context.Background(), []parse.StockLine{{BookToken: "沒this書", Delta: 1}})
	require.NoError(t, err)
	assert.Equal(t, Rejected, out.State)
	assert.Contains(t, out.Reason, "沒this書")
}
