package entity

import "time"

// LinkRecord mirrors the `links` PostgreSQL table schema. Each row is one
// external reference URL belonging to a subject. The URL itself is immutable
// after insertion; every other field is filled in by the validation and
// archive passes. Nullable columns are pointers so that "never checked" is
// distinguishable from a negative result.
type LinkRecord struct {
	ID                int64
	SubjectID         int64
	Label             string
	URL               string
	IsActive          *bool
	LastStatusCode    *int
	ContainsName      *bool
	PageText          *string
	IsArchived        *bool
	ArchivedURL       *string
	ArchivedTimestamp *string
	CheckedAt         *time.Time
}

// PendingLink pairs a link due for validation with the owning subject's
// name, which is the match target for the content check.
type PendingLink struct {
	Link        *LinkRecord
	SubjectName string
}
