package domain

import (
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// MaxPhotoRefs caps the photo references kept on a PlaceDetail.
const MaxPhotoRefs = 5

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the coordinate as an orb point. orb.Point is [lng, lat].
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// DistanceTo returns the great-circle distance in meters.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return geo.Distance(c.Point(), other.Point())
}

// String formats the coordinate as "lat,lng", the form providers expect.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Query formats the coordinate as a location query the resolver parses
// without a geocoding round trip.
func (c Coordinate) Query() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// PlaceSummary is the lightweight record produced by a nearby search.
type PlaceSummary struct {
	PlaceID         string      `json:"place_id"`
	Name            string      `json:"name"`
	Vicinity        string      `json:"vicinity"`
	PriceLevel      *int        `json:"price_level,omitempty"`
	OpenNow         *bool       `json:"open_now,omitempty"`
	Types           []string    `json:"types"`
	PrimaryPhotoRef *string     `json:"primary_photo_ref,omitempty"`
	Rating          *float64    `json:"rating,omitempty"`
	Location        *Coordinate `json:"location,omitempty"`
	DistanceMeters  *float64    `json:"distance_meters,omitempty"`
}

// WithDistanceFrom returns a copy carrying the distance from center.
// Summaries without a location are returned unchanged.
func (p PlaceSummary) WithDistanceFrom(center Coordinate) PlaceSummary {
	if p.Location == nil {
		return p
	}
	d := center.DistanceTo(*p.Location)
	p.DistanceMeters = &d
	return p
}

// Review is a single user review attached to a place.
type Review struct {
	Author string `json:"author"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// PlaceDetail is the enriched record fetched per place on demand.
type PlaceDetail struct {
	PlaceSummary
	Address   string   `json:"address"`
	Phone     *string  `json:"phone,omitempty"`
	Website   *string  `json:"website,omitempty"`
	PhotoRefs []string `json:"photo_refs"`
	Reviews   []Review `json:"reviews"`
}

// MapsURL links to a Google Maps search for the place address.
func (d PlaceDetail) MapsURL() string {
	q := d.Address
	if q == "" {
		q = d.Name
	}
	return "https://www.google.com/maps/search/?" + url.Values{
		"api":   {"1"},
		"query": {q},
	}.Encode()
}

// PriceText renders the price level the way the listing shows it.
func (d PlaceDetail) PriceText() string {
	return PriceText(d.PriceLevel)
}

// PriceText maps a provider price level to display text.
func PriceText(level *int) string {
	if level == nil {
		return "N/A"
	}
	switch *level {
	case 0:
		return "Free"
	case 1:
		return "$"
	case 2:
		return "$$"
	case 3:
		return "$$$"
	case 4:
		return "$$$$"
	default:
		return "N/A"
	}
}
