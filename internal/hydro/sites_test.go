package hydro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

func TestSearchSites_RejectsShortQueries(t *testing.T) {
	for _, q := range []string{"", "ab", "  a  "} {
		_, err := SearchSites(q)
		require.Error(t, err, "query %q", q)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeValidationQueryTooShort, appErr.Code)
	}
}

func TestSearchSites_MatchesByName(t *testing.T) {
	sites, err := SearchSites("yuba")
	require.NoError(t, err)
	require.NotEmpty(t, sites)
	for _, s := range sites {
		assert.Contains(t, s.Name, "Yuba")
	}
}

func TestSearchSites_MatchesBySiteNumber(t *testing.T) {
	sites, err := SearchSites("05331000")
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "Mississippi River at St. Paul, MN", sites[0].Name)
}

func TestSearchSites_CapsResults(t *testing.T) {
	// Every directory entry names a river, so this exceeds the cap.
	sites, err := SearchSites("river")
	require.NoError(t, err)
	assert.Len(t, sites, maxSearchResults)
}

func TestSearchSites_NoMatches(t *testing.T) {
	sites, err := SearchSites("zzzzz")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestPopularSites_ReturnsCopy(t *testing.T) {
	first := PopularSites()
	require.NotEmpty(t, first)
	first[0].Name = "mutated"

	second := PopularSites()
	assert.NotEqual(t, "mutated", second[0].Name)
}

func TestSiteName(t *testing.T) {
	assert.Equal(t, "Colorado River at Lees Ferry, AZ", SiteName("09380000"))
	assert.Equal(t, "", SiteName("00000000"))
}
