package ocr

import (
	"regexp"
	"strings"
)

// Pair is a record identifier matched with a tracking number.
type Pair struct {
	RecordID string
	Tracking string
}

// Result is a reconciliation pass over one scanned label sheet.
// Leftovers are identifiers and tracking tokens that found no partner,
// flagged for manual review.
type Result struct {
	Pairs     []Pair
	Leftovers []string
}

var (
	reRecordID = regexp.MustCompile(`R\d{4}`)
	reTracking = regexp.MustCompile(`\d{12}`)
)

type located struct {
	token string
	line  int
	used  bool
}

// Reconcile pairs record identifiers with tracking numbers by line
// proximity. Greedy: identifiers are processed in scan order, each taking
// the unused tracking token with the smallest line distance. Ties go to
// the earlier identifier, which therefore also wins when two identifiers
// are equidistant from the same token. Not an optimal assignment — a
// pathological label layout can mis-pair, which is why leftovers surface
// for manual review instead of being dropped.
func Reconcile(rawText string) Result {
	var ids, tracks []located
	for i, line := range strings.Split(rawText, "\n") {
		for _, m := range reRecordID.FindAllString(line, -1) {
			ids = append(ids, located{token: m, line: i})
		}
		for _, m := range reTracking.FindAllString(line, -1) {
			tracks = append(tracks, located{token: m, line: i})
		}
	}

	var res Result
	for i := range ids {
		best := -1
		bestDist := 0
		for j := range tracks {
			if tracks[j].used {
				continue
			}
			dist := ids[i].line - tracks[j].line
			if dist < 0 {
				dist = -dist
			}
			if best < 0 || dist < bestDist {
				best = j
				bestDist = dist
			}
		}
		if best < 0 {
			res.Leftovers = append(res.Leftovers, ids[i].token)
			continue
		}
		tracks[best].used = true
		res.Pairs = append(res.Pairs, Pair{RecordID: ids[i].token, Tracking: tracks[best].token})
	}
	for _, t := range tracks {
		if !t.used {
			res.Leftovers = append(res.Leftovers, t.token)
		}
	}
	return res
}
