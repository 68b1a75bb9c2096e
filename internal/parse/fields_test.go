package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meihsieh/bookship-bot/constants"
)

func TestOrderMessageComplete(t *testing.T) {
	body := "姓名：王小明\n電話：0912-345-678\n地址：台北市中正區八德路一段1號\n書名：心經、金剛經\n備註：週末收件\n寄送方式：黑貓"
	d, missing := OrderMessage(body)
	require.Empty(t, missing)
	assert.Equal(t, "王小明", d.Recipient)
	assert.Equal(t, "0912345678", d.Phone)
	assert.Equal(t, "0912-345-678", d.RawPhone)
	assert.Equal(t, "台北市中正區八德路一段1號", d.Address)
	assert.Equal(t, []string{"心經", "金剛經"}, d.BookTokens)
	assert.Equal(t, "週末收件", d.Note)
	assert.Equal(t, constants.DeliveryTCat, d.Delivery)
}

func TestOrderMessageHalfWidthColonAndAliases(t *testing.T) {
	body := "收件人: 林美玲\n手機: 0987654321\n書: 地藏經"
	d, missing := OrderMessage(body)
	assert.Equal(t, "林美玲", d.Recipient)
	assert.Equal(t, "0987654321", d.Phone)
	assert.Equal(t, []string{"地藏經"}, d.BookTokens)
	// no address, no carrier keyword
	assert.Contains(t, missing, "地址")
}

func TestOrderMessageUnlabeledLinesBecomeNote(t *testing.T) {
	body := "姓名：陳大文\n電話：0922333444\n地址：台南市東區林森路\n書名：靜思語\n請放管理室"
	d, missing := OrderMessage(body)
	require.Empty(t, missing)
	assert.Equal(t, "請放管理室", d.Note)
	assert.Equal(t, constants.DeliverySelf, d.Delivery, "address present, no carrier keyword")
}

func TestOrderMessageMissingFields(t *testing.T) {
	d, missing := OrderMessage("備註：只是留言")
	assert.Empty(t, d.BookTokens)
	assert.Contains(t, missing, "收件人")
	assert.Contains(t, missing, "電話（09開頭共10碼）")
	assert.Contains(t, missing, "書名")
	assert.Contains(t, missing, "地址")
}

func TestOrderMessageBadPhoneReported(t *testing.T) {
	body := "姓名：王五\n電話：12345\n地址：高雄市苓雅區\n書名：心經"
	d, missing := OrderMessage(body)
	assert.Equal(t, "", d.Phone)
	assert.Equal(t, "12345", d.RawPhone)
	assert.Contains(t, missing, "電話（09開頭共10碼）")
}

func TestSplitBookList(t *testing.T) {
	assert.Equal(t, []string{"心經", "金剛經", "地藏經"}, SplitBookList("心經、金剛經，地藏經"))
	assert.Equal(t, []string{"心經", "金剛經"}, SplitBookList("心經 / 金剛經"))
	assert.Empty(t, SplitBookList("  "))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0912345678", "0912345678"},
		{"0912-345-678", "0912345678"},
		{"+886912345678", "0912345678"},
		{"886912345678", "0912345678"},
		{"02-2345-6789", ""},   // landline, wrong shape
		{"091234567", ""},      // too short
		{"09123456789", ""},    // too long
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.input), "input %q", tt.input)
	}
}

func TestStockMessage(t *testing.T) {
	lines, invalid := StockMessage("心經 10本\n金剛經 +5\n靜思語 -3冊\n沒有數量的行")
	require.Len(t, invalid, 1)
	assert.Equal(t, "沒有數量的行", invalid[0])
	require.Len(t, lines, 3)
	assert.Equal(t, StockLine{BookToken: "心經", Delta: 10}, lines[0])
	assert.Equal(t, StockLine{BookToken: "金剛經", Delta: 5}, lines[1])
	assert.Equal(t, StockLine{BookToken: "靜思語", Delta: -3}, lines[2])
}

func TestStockMessageRejectsZeroAndBareQty(t *testing.T) {
	lines, invalid := StockMessage("心經 0\n20本")
	assert.Empty(t, lines)
	assert.Len(t, invalid, 2)
}

func TestStockMessageFullWidthMinus(t *testing.T) {
	lines, invalid := StockMessage("心經 －2")
	require.Empty(t, invalid)
	require.Len(t, lines, 1)
	assert.Equal(t, -2, lines[0].Delta)
}
