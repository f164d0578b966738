package entity

// RecordError ties a record that could not be persisted to the reason it
// was skipped. The record's pending changes for that iteration are lost;
// the batch carries on.
type RecordError struct {
	ID      int64
	URL     string
	Message string
}

// Report summarizes one batch pass. Only the counters relevant to the pass
// that produced it are populated; Errors collects per-record failures that
// were isolated rather than aborting the run.
type Report struct {
	Total       int
	Scraped     int
	Active      int
	Inactive    int
	Matched     int
	Archived    int
	NotArchived int
	Submitted   int
	Errors      []RecordError
}

// AddError appends a per-record failure to the report.
func (r *Report) AddError(id int64, url, message string) {
	r.Errors = append(r.Errors, RecordError{ID: id, URL: url, Message: message})
}
