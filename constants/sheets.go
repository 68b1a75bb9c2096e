package constants

// Worksheet names. Overridable per deployment via config; these are the
// defaults the operators' workbook ships with.
const (
	SheetOrders     = "寄書任務"
	SheetCatalog    = "書目主檔"
	SheetZipRef     = "郵遞區號參照表"
	SheetStockIn    = "入庫明細"
	SheetHistory    = "歷史紀錄"
	SheetWhitelist  = "白名單"
	SheetCandidates = "候選名單"
)

// Orders sheet headers. Columns are located by header name at load time,
// never by position.
const (
	ColCreatedAt  = "建立時間"
	ColCreatedBy  = "建立者"
	ColRecordID   = "紀錄編號"
	ColRecipient  = "收件人"
	ColPhone      = "電話"
	ColAddress    = "地址"
	ColBookTitle  = "書名"
	ColNote       = "備註"
	ColDelivery   = "寄送方式"
	ColShipDate   = "出貨日期"
	ColTracking   = "物流單號"
	ColHandler    = "經手人"
	ColStatus     = "狀態"
)

// Catalog sheet headers.
const (
	ColCanonicalTitle = "書名"
	ColAliases        = "別名"
	ColEnabled        = "啟用"
)

// Zip reference sheet headers.
const (
	ColZipArea = "地區"
	ColZipCode = "郵遞區號"
)

// Stock-in sheet headers.
const (
	ColStockTime    = "時間"
	ColStockHandler = "經手人"
	ColStockTitle   = "書名"
	ColStockQty     = "數量"
	ColStockNote    = "備註"
)

// History sheet headers.
const (
	ColHistTime   = "時間"
	ColHistUser   = "使用者"
	ColHistAction = "動作"
	ColHistDetail = "內容"
)

// Whitelist / candidate sheet headers.
const (
	ColUserID   = "使用者ID"
	ColUserName = "名稱"
	ColSeenAt   = "時間"
)

// OrderHeaders returns the orders sheet header row in canonical column order.
func OrderHeaders() []string {
	return []string{
		ColCreatedAt, ColCreatedBy, ColRecordID, ColRecipient, ColPhone,
		ColAddress, ColBookTitle, ColNote, ColDelivery, ColShipDate,
		ColTracking, ColHandler, ColStatus,
	}
}
