package hydro

import (
	"strings"

	"riverlog/internal/types"
)

// minSearchLength is the shortest accepted site search query.
const minSearchLength = 3

// maxSearchResults caps site search responses.
const maxSearchResults = 25

// popularSites is the curated gauge directory shipped with the app. It
// covers the upper-Midwest home waters plus a spread of well-known
// western and east-coast fisheries.
var popularSites = []types.GaugeSite{
	{SiteNumber: "05331000", Name: "Mississippi River at St. Paul, MN", State: "MN"},
	{SiteNumber: "05330000", Name: "Minnesota River at Jordan, MN", State: "MN"},
	{SiteNumber: "05340500", Name: "St. Croix River at Stillwater, MN", State: "MN"},
	{SiteNumber: "05288500", Name: "Mississippi River at Fridley, MN", State: "MN"},
	{SiteNumber: "05366800", Name: "Chippewa River at Grand Ave at Eau Claire, WI", State: "WI"},
	{SiteNumber: "05365500", Name: "Chippewa River at Chippewa Falls, WI", State: "WI"},
	{SiteNumber: "05370000", Name: "Eau Galle River at Spring Valley, WI", State: "WI"},
	{SiteNumber: "05345000", Name: "Vermillion River Near Empire, MN", State: "MN"},
	{SiteNumber: "05342000", Name: "Kinnickinnic River Near River Falls, WI", State: "WI"},
	{SiteNumber: "05362000", Name: "Jump River at Sheldon, WI", State: "WI"},
	{SiteNumber: "05359500", Name: "South Fork Flambeau River Near Phillips, WI", State: "WI"},
	{SiteNumber: "05356000", Name: "Chippewa River Near Bruce, WI", State: "WI"},
	{SiteNumber: "05394500", Name: "Prairie River Near Merrill, WI", State: "WI"},
	{SiteNumber: "05395000", Name: "Wisconsin River at Merrill, WI", State: "WI"},
	{SiteNumber: "05393700", Name: "Spirit River at Spirit Falls, WI", State: "WI"},
	{SiteNumber: "09380000", Name: "Colorado River at Lees Ferry, AZ", State: "AZ"},
	{SiteNumber: "06191500", Name: "Yellowstone River at Corwin Springs, MT", State: "MT"},
	{SiteNumber: "12358500", Name: "Clark Fork at Deer Lodge, MT", State: "MT"},
	{SiteNumber: "13337000", Name: "Snake River at Anatone, WA", State: "WA"},
	{SiteNumber: "14211720", Name: "Sandy River below Bull Run River, OR", State: "OR"},
	{SiteNumber: "01463500", Name: "Delaware River at Trenton, NJ", State: "NJ"},
	{SiteNumber: "03086000", Name: "Beaver River at Beaver Falls, PA", State: "PA"},
	{SiteNumber: "01632000", Name: "South Fork Shenandoah River at Front Royal, VA", State: "VA"},
	{SiteNumber: "02102908", Name: "Haw River at Bynum, NC", State: "NC"},
	{SiteNumber: "02334430", Name: "Chattahoochee River at Buford Dam, GA", State: "GA"},
	{SiteNumber: "08158000", Name: "Colorado River at Austin, TX", State: "TX"},
	{SiteNumber: "11421000", Name: "Yuba River below Englebright Dam, CA", State: "CA"},
	{SiteNumber: "11418000", Name: "North Yuba River below Goodyears Bar, CA", State: "CA"},
	{SiteNumber: "11419600", Name: "South Yuba River at Langs Crossing, CA", State: "CA"},
	{SiteNumber: "11417500", Name: "South Yuba River near Grass Valley, CA", State: "CA"},
	{SiteNumber: "11410500", Name: "Bear River near Auburn, CA", State: "CA"},
	{SiteNumber: "11407000", Name: "Feather River at Nicolaus, CA", State: "CA"},
	{SiteNumber: "11407150", Name: "Sacramento River at Verona, CA", State: "CA"},
	{SiteNumber: "11404500", Name: "American River at Fair Oaks, CA", State: "CA"},
	{SiteNumber: "11394500", Name: "Middle Fork Feather River near Merrimac, CA", State: "CA"},
	{SiteNumber: "11425500", Name: "Sacramento River above Bend Bridge, CA", State: "CA"},
	{SiteNumber: "11342000", Name: "Pit River near Canby, CA", State: "CA"},
	{SiteNumber: "11447650", Name: "Sacramento River at Freeport, CA", State: "CA"},
	{SiteNumber: "11455420", Name: "Napa River at St. Helena, CA", State: "CA"},
	{SiteNumber: "11447890", Name: "American River at Sacramento, CA", State: "CA"},
}

// PopularSites returns the curated gauge directory.
func PopularSites() []types.GaugeSite {
	out := make([]types.GaugeSite, len(popularSites))
	copy(out, popularSites)
	return out
}

// SearchSites performs a case-insensitive substring match of query against
// site names, site numbers, and state codes. Queries shorter than three
// characters are rejected.
func SearchSites(query string) ([]types.GaugeSite, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return nil, types.NewAppError(types.ErrCodeValidationQueryTooShort, "search query must be at least 3 characters", nil)
	}

	needle := strings.ToLower(query)
	matches := make([]types.GaugeSite, 0)
	for _, site := range popularSites {
		if strings.Contains(strings.ToLower(site.Name), needle) ||
			strings.Contains(site.SiteNumber, needle) ||
			strings.EqualFold(site.State, query) {
			matches = append(matches, site)
			if len(matches) == maxSearchResults {
				break
			}
		}
	}
	return matches, nil
}

// SiteName returns the curated display name for a site number, or empty
// when the site is not in the directory.
func SiteName(siteNumber string) string {
	for _, site := range popularSites {
		if site.SiteNumber == siteNumber {
			return site.Name
		}
	}
	return ""
}
