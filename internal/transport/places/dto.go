package places

import "github.com/kailas-cloud/geogrub/internal/domain"

type nearbyResponse struct {
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	Results       []placeResult `json:"results"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type detailsResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Result       placeResult `json:"result"`
}

type placeResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Phone            *string  `json:"formatted_phone_number"`
	Website          *string  `json:"website"`
	Rating           *float64 `json:"rating"`
	PriceLevel       *int     `json:"price_level"`
	Types            []string `json:"types"`
	OpeningHours     *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	Photos []struct {
		Reference string `json:"photo_reference"`
	} `json:"photos"`
	Reviews []struct {
		AuthorName string `json:"author_name"`
		Rating     int    `json:"rating"`
		Text       string `json:"text"`
	} `json:"reviews"`
	Geometry *struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func (r *placeResult) summary() domain.PlaceSummary {
	s := domain.PlaceSummary{
		PlaceID:    r.PlaceID,
		Name:       r.Name,
		Vicinity:   r.Vicinity,
		PriceLevel: r.PriceLevel,
		Types:      r.Types,
		Rating:     r.Rating,
	}
	if r.OpeningHours != nil {
		s.OpenNow = r.OpeningHours.OpenNow
	}
	if len(r.Photos) > 0 && r.Photos[0].Reference != "" {
		ref := r.Photos[0].Reference
		s.PrimaryPhotoRef = &ref
	}
	if r.Geometry != nil {
		s.Location = &domain.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
	}
	return s
}

func (r *placeResult) detail() domain.PlaceDetail {
	d := domain.PlaceDetail{
		PlaceSummary: r.summary(),
		Address:      r.FormattedAddress,
		Phone:        r.Phone,
		Website:      r.Website,
	}
	for _, p := range r.Photos {
		if p.Reference != "" {
			d.PhotoRefs = append(d.PhotoRefs, p.Reference)
		}
	}
	for _, rv := range r.Reviews {
		d.Reviews = append(d.Reviews, domain.Review{Author: rv.AuthorName, Rating: rv.Rating, Text: rv.Text})
	}
	return d
}
