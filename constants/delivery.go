package constants

import "strings"

// DeliveryMethod is the carrier recorded on an order row.
type DeliveryMethod string

const (
	DeliverySeven  DeliveryMethod = "7-11"
	DeliveryFamily DeliveryMethod = "全家"
	DeliveryTCat   DeliveryMethod = "黑貓"
	DeliveryPost   DeliveryMethod = "郵寄"
	DeliverySelf   DeliveryMethod = "自送" // fallback when an address is given but no carrier keyword matched
)

var allDeliveryMethods = []DeliveryMethod{
	DeliverySeven,
	DeliveryFamily,
	DeliveryTCat,
	DeliveryPost,
	DeliverySelf,
}

// keyword → carrier. Keys are matched as lowercase substrings.
var deliverySynonyms = map[string]DeliveryMethod{
	"7-11": DeliverySeven,
	"711":  DeliverySeven,
	"7‑11": DeliverySeven,
	"小七":   DeliverySeven,
	"統一超商": DeliverySeven,
	"全家":   DeliveryFamily,
	"famil": DeliveryFamily,
	"黑貓":   DeliveryTCat,
	"宅急便":  DeliveryTCat,
	"宅配":   DeliveryTCat,
	"郵寄":   DeliveryPost,
	"郵局":   DeliveryPost,
	"掛號":   DeliveryPost,
	"自送":   DeliverySelf,
	"自取":   DeliverySelf,
	"面交":   DeliverySelf,
}

// DetectDelivery scans free text for a carrier keyword.
func DetectDelivery(input string) (DeliveryMethod, bool) {
	if input == "" {
		return "", false
	}
	s := strings.ToLower(input)
	for kw, m := range deliverySynonyms {
		if strings.Contains(s, kw) {
			return m, true
		}
	}
	return "", false
}

func DeliveryMethods() []string {
	result := make([]string, len(allDeliveryMethods))
	for i, m := range allDeliveryMethods {
		result[i] = string(m)
	}
	return result
}
