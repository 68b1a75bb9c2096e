package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/meihsieh/bookship-bot/internal/normalize"
)

// Kind classifies a resolution outcome.
type Kind int

const (
	Resolved Kind = iota
	Ambiguous
	NotFound
)

// Resolution is the outcome of resolving one book token.
type Resolution struct {
	Kind       Kind
	Title      string   // set when Kind == Resolved
	Candidates []string // set when Kind == Ambiguous, capped by the caller's limit
	Fuzzy      bool     // Resolved via the similarity stage, not an exact or containment hit
}

// shortAlnum admits short codes like "a1" into the fuzzy pool even though
// they are under the minimum alias length.
var shortAlnum = regexp.MustCompile(`^[a-z]\d+$`)

const containmentMinRunes = 4

// Resolve maps a free-text token to a canonical title. Strategies run in
// order and short-circuit: exact alias, digit-narrowing, containment,
// similarity. When the token carries digit runs and no entry shares one,
// the result is NotFound — there is no fallback to the un-narrowed set,
// trading recall for precision so 第5冊 can never land on 第6冊.
func (s *Snapshot) Resolve(token string, cutoff float64, maxCandidates int) Resolution {
	key := normalize.Key(token)
	if key == "" {
		return Resolution{Kind: NotFound}
	}
	if title, ok := s.byAlias[key]; ok {
		return Resolution{Kind: Resolved, Title: title}
	}

	pool := s.aliases
	if runs := normalize.Digits(key); len(runs) > 0 {
		narrowed := s.narrowByDigits(key)
		if len(narrowed) == 0 {
			return Resolution{Kind: NotFound}
		}
		pool = narrowed
	}

	// containment, longest alias first
	for _, a := range pool {
		if len([]rune(a.key)) < containmentMinRunes {
			continue
		}
		if strings.Contains(key, a.key) || strings.Contains(a.key, key) {
			return Resolution{Kind: Resolved, Title: a.title}
		}
	}

	return s.fuzzy(key, pool, cutoff, maxCandidates)
}

// narrowByDigits keeps aliases of entries that share at least one digit run
// with the token. The whole entry qualifies, so its digit-free aliases stay
// in the pool too.
func (s *Snapshot) narrowByDigits(key string) []aliasRef {
	qualifying := make(map[string]bool)
	for _, a := range s.aliases {
		if normalize.SharesDigitRun(key, a.key) {
			qualifying[a.title] = true
		}
	}
	if len(qualifying) == 0 {
		return nil
	}
	var out []aliasRef
	for _, a := range s.aliases {
		if qualifying[a.title] {
			out = append(out, a)
		}
	}
	return out
}

func (s *Snapshot) fuzzy(key string, pool []aliasRef, cutoff float64, maxCandidates int) Resolution {
	params := levenshtein.NewParams()
	best := make(map[string]float64)
	for _, a := range pool {
		if len([]rune(a.key)) < 3 && !shortAlnum.MatchString(a.key) {
			continue
		}
		score := levenshtein.Similarity(key, a.key, params)
		if score < cutoff {
			continue
		}
		if score > best[a.title] {
			best[a.title] = score
		}
	}
	if len(best) == 0 {
		return Resolution{Kind: NotFound}
	}
	titles := make([]string, 0, len(best))
	for t := range best {
		titles = append(titles, t)
	}
	sort.Slice(titles, func(i, j int) bool {
		if best[titles[i]] != best[titles[j]] {
			return best[titles[i]] > best[titles[j]]
		}
		return titles[i] < titles[j]
	})
	if len(titles) == 1 {
		return Resolution{Kind: Resolved, Title: titles[0], Fuzzy: true}
	}
	if maxCandidates > 0 && len(titles) > maxCandidates {
		titles = titles[:maxCandidates]
	}
	return Resolution{Kind: Ambiguous, Candidates: titles}
}
