package bot

import (
	"fmt"
	"strings"

	"github.com/meihsieh/bookship-bot/internal/order"
)

func renderOrderCreated(o *order.Outcome) string {
	first := o.Records[0]
	var b strings.Builder
	fmt.Fprintf(&b, "✅ 已建立寄書 %s\n", o.RecordID)
	fmt.Fprintf(&b, "收件人：%s（%s）\n", first.Recipient, first.Phone)
	if first.Address != "" {
		fmt.Fprintf(&b, "地址：%s\n", first.Address)
	}
	fmt.Fprintf(&b, "寄送方式：%s\n", first.Delivery)
	fmt.Fprintf(&b, "書目（%d 本）：%s", len(o.Records), strings.Join(titlesOf(o), "、"))
	if first.Note != "" {
		fmt.Fprintf(&b, "\n備註：%s", first.Note)
	}
	return b.String()
}

func titlesOf(o *order.Outcome) []string {
	out := make([]string, len(o.Records))
	for i, r := range o.Records {
		out[i] = r.BookTitle
	}
	return out
}

func renderCandidates(token string, candidates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "「%s」有多個可能的書目，請回覆編號選擇：\n", token)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("（回覆 N 取消）")
	return b.String()
}

func renderProposal(titles []string) string {
	var b strings.Builder
	b.WriteString("以下書目為模糊比對結果，請確認：\n")
	for _, t := range titles {
		fmt.Fprintf(&b, "・%s\n", t)
	}
	b.WriteString("確認建立請回覆 Y，取消請回覆 N。")
	return b.String()
}

func renderGroups(groups []order.Group) string {
	if len(groups) == 0 {
		return "查無符合的寄書紀錄。"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "共 %d 筆寄書：\n", len(groups))
	for _, g := range groups {
		first := g.Records[0]
		fmt.Fprintf(&b, "\n%s %s（%s）\n", g.RecordID, first.Recipient, first.Status)
		fmt.Fprintf(&b, "　書目：%s\n", strings.Join(g.Titles(), "、"))
		if first.ShipDate != "" {
			fmt.Fprintf(&b, "　出貨：%s 單號 %s\n", first.ShipDate, first.Tracking)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCancelPrompt(g order.Group) string {
	first := g.Records[0]
	return fmt.Sprintf("將取消 %s（%s，%s）共 %d 本：%s\n確認請回覆 Y，保留請回覆 N。",
		g.RecordID, first.Recipient, first.Phone, len(g.Records), strings.Join(g.Titles(), "、"))
}

func renderStockPrompt(items []order.StockItem) string {
	var b strings.Builder
	b.WriteString("入庫內容：\n")
	for _, it := range items {
		fmt.Fprintf(&b, "・%s %+d\n", it.Title, it.Delta)
	}
	b.WriteString("確認請回覆 Y，取消請回覆 N。")
	return b.String()
}

func renderShipment(report *order.ShipmentReport, leftovers []string, previewCap int) string {
	var b strings.Builder
	if len(report.Updated) == 0 && len(report.NotFound) == 0 && len(leftovers) == 0 {
		return "圖片中未辨識到任何紀錄編號或物流單號。"
	}
	if len(report.Updated) > 0 {
		fmt.Fprintf(&b, "✅ 已更新 %d 筆出貨：\n", len(report.Updated))
		for _, p := range report.Updated {
			fmt.Fprintf(&b, "%s → %s\n", p.RecordID, p.Tracking)
		}
	}
	for _, p := range report.NotFound {
		fmt.Fprintf(&b, "⚠️ %s 無待出貨紀錄（單號 %s）\n", p.RecordID, p.Tracking)
	}
	if len(leftovers) > 0 {
		if previewCap > 0 && len(leftovers) > previewCap {
			leftovers = leftovers[:previewCap]
		}
		b.WriteString("\n❗以下項目需人工檢核：\n")
		b.WriteString(strings.Join(leftovers, "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOpaqueFailure(code string) string {
	return fmt.Sprintf("❌ 系統處理失敗（代碼 %s），請稍後再試或通知管理員。", code)
}

func renderMyID(userID, name string) string {
	return fmt.Sprintf("你的 ID：\n%s\n顯示名稱：%s\n\n請提供給管理員加入白名單。", userID, name)
}
