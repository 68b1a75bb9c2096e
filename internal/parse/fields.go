// Package parse extracts typed fields from multi-line chat messages.
// Parsing is pure: no I/O, no resolver calls. Book tokens stay unresolved
// here so the composer can report per-item failures.
package parse

import (
	"regexp"
	"strings"

	"github.com/meihsieh/bookship-bot/constants"
)

// Field is a canonical order field name.
type Field string

const (
	FieldName     Field = "name"
	FieldPhone    Field = "phone"
	FieldAddress  Field = "address"
	FieldBooks    Field = "books"
	FieldNote     Field = "note"
	FieldDelivery Field = "delivery"
)

// labelAliases maps the labels users actually type to canonical fields.
var labelAliases = map[string]Field{
	"姓名":   FieldName,
	"收件人":  FieldName,
	"收件者":  FieldName,
	"學生姓名": FieldName,
	"電話":   FieldPhone,
	"手機":   FieldPhone,
	"連絡電話": FieldPhone,
	"地址":   FieldAddress,
	"住址":   FieldAddress,
	"收件地址": FieldAddress,
	"書名":   FieldBooks,
	"書目":   FieldBooks,
	"書":    FieldBooks,
	"備註":   FieldNote,
	"留言":   FieldNote,
	"寄送方式": FieldDelivery,
	"物流":   FieldDelivery,
	"配送":   FieldDelivery,
}

// Draft is a parsed, unresolved order.
type Draft struct {
	Recipient  string
	Phone      string // normalized: 09 + 8 digits
	RawPhone   string
	Address    string
	BookTokens []string
	Note       string
	Delivery   constants.DeliveryMethod
}

var (
	labelSplit = regexp.MustCompile(`^\s*([^:：]{1,8})\s*[:：]\s*(.*)$`)
	bookSplit  = regexp.MustCompile(`[、,，/／・\n]+|\s{1,}`)
	nonDigits  = regexp.MustCompile(`\D`)
)

// OrderMessage parses a create-order body (command prefix already
// stripped). It returns the draft plus the user-facing names of missing or
// invalid fields; a non-empty list means the order must be rejected before
// any resolver runs.
func OrderMessage(body string) (*Draft, []string) {
	d := &Draft{}
	var notes []string
	fields := make(map[Field][]string)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := labelSplit.FindStringSubmatch(line)
		if m == nil {
			notes = append(notes, line)
			continue
		}
		field, ok := labelAliases[strings.TrimSpace(m[1])]
		if !ok {
			// unrecognized label: keep the whole line as a note
			notes = append(notes, line)
			continue
		}
		if v := strings.TrimSpace(m[2]); v != "" {
			fields[field] = append(fields[field], v)
		}
	}

	d.Recipient = strings.Join(fields[FieldName], "、")
	d.RawPhone = strings.Join(fields[FieldPhone], " ")
	d.Address = strings.Join(fields[FieldAddress], " ")
	d.Note = strings.Join(append(fields[FieldNote], notes...), "；")
	d.Phone = NormalizePhone(d.RawPhone)
	d.BookTokens = SplitBookList(strings.Join(fields[FieldBooks], "、"))

	deliveryText := strings.Join(fields[FieldDelivery], " ")
	if m, ok := constants.DetectDelivery(deliveryText); ok {
		d.Delivery = m
	} else if m, ok := constants.DetectDelivery(body); ok {
		d.Delivery = m
	} else if d.Address != "" {
		d.Delivery = constants.DeliverySelf
	}

	var missing []string
	if d.Recipient == "" {
		missing = append(missing, "收件人")
	}
	if d.Phone == "" {
		missing = append(missing, "電話（09開頭共10碼）")
	}
	if len(d.BookTokens) == 0 {
		missing = append(missing, "書名")
	}
	if d.Delivery == "" || (d.Delivery == constants.DeliverySelf && d.Address == "") {
		if d.Address == "" {
			missing = append(missing, "地址")
		}
	}
	return d, missing
}

// SplitBookList splits a book-title field on the fixed delimiter set:
// enumeration comma, comma, slash, middle dot, and whitespace runs.
func SplitBookList(s string) []string {
	var out []string
	for _, tok := range bookSplit.Split(s, -1) {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// NormalizePhone reduces free text to the fixed-length mobile form
// 09xxxxxxxx, accepting a +886 country prefix. Returns "" when the input
// does not normalize.
func NormalizePhone(s string) string {
	digits := nonDigits.ReplaceAllString(s, "")
	if strings.HasPrefix(digits, "886") && len(digits) == 12 {
		digits = "0" + digits[3:]
	}
	if len(digits) == 10 && strings.HasPrefix(digits, "09") {
		return digits
	}
	return ""
}
