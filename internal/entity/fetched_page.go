package entity

import "time"

// FetchedPage is the raw result of retrieving a source URL.
type FetchedPage struct {
	URL            string    `json:"url"`
	FinalURL       string    `json:"final_url"`
	HTML           string    `json:"html"`
	HTTPStatusCode int       `json:"http_status_code"`
	ResponseTimeMS int       `json:"response_time_ms"`
	FetchedAt      time.Time `json:"fetched_at"`
	Renderer       string    `json:"renderer"` // http, browser, cache
	RetryCount     int       `json:"retry_count"`
}
