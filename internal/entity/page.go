package entity

// FetchedPage is the raw result of fetching a profile page, before any
// field extraction. StatusCode is the final status after redirects.
type FetchedPage struct {
	URL        string
	StatusCode int
	HTML       string
}
