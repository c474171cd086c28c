package domain

// Places provider status values that end a page without error.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// SearchOptions bounds a nearby search. MaxPages <= 0 fetches every page.
type SearchOptions struct {
	RadiusMeters int `json:"radius"`
	MaxPages     int `json:"max_pages"`
}

// NearbyRequest is one page request against the nearby-search provider.
// PageToken continues a previous page; the other fields are ignored then.
type NearbyRequest struct {
	Center       Coordinate
	RadiusMeters int
	Category     string
	PageToken    string
}

// NearbyPage is one page of nearby-search results. Status is the provider's
// status field, returned verbatim.
type NearbyPage struct {
	Status        string
	Results       []PlaceSummary
	NextPageToken string
}

// DetailPage is a place-detail response.
type DetailPage struct {
	Status string
	Result PlaceDetail
}

// Photo is raw photo bytes as served by the provider.
type Photo struct {
	ContentType string
	Data        []byte
}
