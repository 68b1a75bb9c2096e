package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// StockLine is one unresolved stock-adjust item.
type StockLine struct {
	BookToken string
	Delta     int // positive = stock in, negative = correction
}

var stockQty = regexp.MustCompile(`([+\-－]?\d+)\s*(?:本|冊|套)?\s*$`)

// StockMessage parses a stock-adjust body (command prefix stripped): one
// item per line, book token followed by a signed quantity. Lines without a
// trailing quantity are reported back as invalid.
func StockMessage(body string) ([]StockLine, []string) {
	var lines []StockLine
	var invalid []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := stockQty.FindStringSubmatchIndex(line)
		if m == nil {
			invalid = append(invalid, line)
			continue
		}
		qtyStr := strings.ReplaceAll(line[m[2]:m[3]], "－", "-")
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty == 0 {
			invalid = append(invalid, line)
			continue
		}
		token := strings.TrimSpace(line[:m[0]])
		if token == "" {
			invalid = append(invalid, line)
			continue
		}
		lines = append(lines, StockLine{BookToken: token, Delta: qty})
	}
	return lines, invalid
}
