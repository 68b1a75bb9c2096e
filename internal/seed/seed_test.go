package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meihsieh/bookship-bot/constants"
)

func TestParseValidSeed(t *testing.T) {
	data := []byte(`{
		"catalog": [
			{"title": "心經抄本", "aliases": ["心經", "heart sutra"]},
			{"title": "絕版書", "enabled": false}
		],
		"zipcodes": [
			{"area": "台北市中正區", "zip": "10001"}
		]
	}`)
	f, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, f.Catalog, 2)
	require.Len(t, f.Zipcodes, 1)

	rows := f.CatalogRows()
	assert.Equal(t, "心經抄本", rows[0][constants.ColCanonicalTitle])
	assert.Equal(t, "心經、heart sutra", rows[0][constants.ColAliases])
	assert.Equal(t, "Y", rows[0][constants.ColEnabled])
	assert.Equal(t, "N", rows[1][constants.ColEnabled])

	zrows := f.ZipRows()
	assert.Equal(t, "台北市中正區", zrows[0][constants.ColZipArea])
	assert.Equal(t, "10001", zrows[0][constants.ColZipCode])
}

func TestParseRejectsBadSeed(t *testing.T) {
	cases := map[string]string{
		"missing title":   `{"catalog": [{"aliases": ["x"]}]}`,
		"empty title":     `{"catalog": [{"title": ""}]}`,
		"bad zip shape":   `{"zipcodes": [{"area": "台北市", "zip": "ab"}]}`,
		"unknown field":   `{"catalog": [{"title": "x", "extra": 1}]}`,
		"not json":        `{{`,
	}
	for name, data := range cases {
		_, err := Parse([]byte(data))
		assert.Error(t, err, name)
	}
}
