package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meihsieh/bookship-bot/constants"
	"github.com/meihsieh/bookship-bot/internal/store"
)

func snapshotFrom(rows [][3]string) *Snapshot {
	t := &store.Table{Sheet: constants.SheetCatalog}
	for i, r := range rows {
		t.Rows = append(t.Rows, store.Row{
			Index: i + 2,
			Cells: map[string]string{
				constants.ColCanonicalTitle: r[0],
				constants.ColAliases:        r[1],
				constants.ColEnabled:        r[2],
			},
		})
	}
	return buildSnapshot(t)
}

func TestResolveExactAlias(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"心經抄本", "心經、heart sutra", ""},
		{"金剛經抄本", "金剛經", ""},
	})
	for _, token := range []string{"心經", "心 經", "Heart Sutra", "心經抄本"} {
		r := s.Resolve(token, 0.6, 10)
		require.Equal(t, Resolved, r.Kind, "token %q", token)
		assert.Equal(t, "心經抄本", r.Title)
		assert.False(t, r.Fuzzy)
	}
}

func TestResolveDisabledEntryInvisible(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"絕版書", "絕版", "N"},
	})
	assert.Equal(t, NotFound, s.Resolve("絕版書", 0.6, 10).Kind)
}

func TestResolveDigitNarrowing(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"讀本第5冊", "讀本5、book 5", ""},
		{"讀本第6冊", "讀本6、book 6", ""},
	})

	r := s.Resolve("book6", 0.6, 10)
	require.Equal(t, Resolved, r.Kind)
	assert.Equal(t, "讀本第6冊", r.Title, "digit run must pin the volume")

	// a digit run no entry carries is a hard miss, never a near-match
	assert.Equal(t, NotFound, s.Resolve("讀本7", 0.6, 10).Kind)
}

func TestResolveContainmentPrefersLongestAlias(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"英文讀本", "英文讀本", ""},
		{"英文讀本教師手冊", "英文讀本教師手冊", ""},
	})
	r := s.Resolve("這套英文讀本教師手冊很好", 0.6, 10)
	require.Equal(t, Resolved, r.Kind)
	assert.Equal(t, "英文讀本教師手冊", r.Title)
}

func TestResolveFuzzySingleHit(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"靜思語錄", "靜思語錄", ""},
		{"地藏經", "地藏經", ""},
	})
	r := s.Resolve("靜思語綠", 0.6, 10)
	require.Equal(t, Resolved, r.Kind)
	assert.Equal(t, "靜思語錄", r.Title)
	assert.True(t, r.Fuzzy, "similarity hits are flagged for confirmation")
}

func TestResolveFuzzyAmbiguous(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"甲乙丙丁戊", "甲乙丙丁戊", ""},
		{"甲乙丙丁己", "甲乙丙丁己", ""},
	})
	r := s.Resolve("甲乙丙丁庚", 0.6, 10)
	require.Equal(t, Ambiguous, r.Kind)
	assert.Len(t, r.Candidates, 2)
}

func TestResolveCandidateCap(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"讀經本甲一", "讀經本甲一", ""},
		{"讀經本甲二", "讀經本甲二", ""},
		{"讀經本甲三", "讀經本甲三", ""},
	})
	r := s.Resolve("讀經本甲四", 0.6, 2)
	require.Equal(t, Ambiguous, r.Kind)
	assert.Len(t, r.Candidates, 2)
}

func TestResolveShortAliasExcludedFromFuzzy(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"唐詩", "唐詩", ""},
	})
	// two-rune alias is below the fuzzy minimum and nothing else matches
	assert.Equal(t, NotFound, s.Resolve("宋詩", 0.6, 10).Kind)
}

func TestResolveEmptyToken(t *testing.T) {
	s := snapshotFrom([][3]string{{"心經", "", ""}})
	assert.Equal(t, NotFound, s.Resolve("（）", 0.6, 10).Kind)
}

func TestSnapshotAliasCollisionFirstWins(t *testing.T) {
	s := snapshotFrom([][3]string{
		{"甲書", "共同別名壹", ""},
		{"乙書", "共同別名壹", ""},
	})
	r := s.Resolve("共同別名壹", 0.6, 10)
	require.Equal(t, Resolved, r.Kind)
	assert.Equal(t, "甲書", r.Title)
}
