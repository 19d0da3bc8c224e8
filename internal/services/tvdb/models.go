package tvdb

// Series is a catalog series record, normalized from the wire payloads.
type Series struct {
	ID       int64
	Name     string
	Year     int
	Status   string
	Overview string
}

// Episode is one catalog episode entry for a series.
type Episode struct {
	ID     int64
	Name   string
	Season int
	Number int
	Aired  string
}

type loginRequest struct {
	APIKey string `json:"apikey"`
}

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

type searchResponse struct {
	Status string         `json:"status"`
	Data   []searchResult `json:"data"`
}

type searchResult struct {
	ObjectID     string `json:"objectID"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Year         string `json:"year"`
	Overview     string `json:"overview"`
	Status       string `json:"status"`
	FirstAirTime string `json:"first_air_time"`
	TvdbID       string `json:"tvdb_id"`
}

type seriesResponse struct {
	Status string       `json:"status"`
	Data   seriesDetail `json:"data"`
}

type seriesDetail struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Year       string `json:"year"`
	FirstAired string `json:"firstAired"`
	Overview   string `json:"overview"`
	Status     struct {
		Name string `json:"name"`
	} `json:"status"`
}

type episodesResponse struct {
	Status string `json:"status"`
	Data   struct {
		Series   seriesDetail  `json:"series"`
		Episodes []episodeItem `json:"episodes"`
	} `json:"data"`
	Links struct {
		Next  string `json:"next"`
		Total int    `json:"total_items"`
	} `json:"links"`
}

type episodeItem struct {
	ID           int64  `json:"id"`
	SeriesID     int64  `json:"seriesId"`
	Name         string `json:"name"`
	Aired        string `json:"aired"`
	SeasonNumber int    `json:"seasonNumber"`
	Number       int    `json:"number"`
}
