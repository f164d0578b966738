package entity

import "time"

// Subject mirrors the `subjects` PostgreSQL table schema. One row per
// biographical record scraped from the memorial listing.
type Subject struct {
	ID              int64
	Slug            string
	ProfileURL      string
	Name            string
	ImageURL        string
	SourceName      string
	SourceURL       string
	Author          string
	DescriptionHTML string
	DescriptionText string
	Region          string
	Country         string
	State           string
	Sex             string
	DateOfKilling   *time.Time
	PreviousThreats bool
	TypeOfWork      string
	Sector          string
	SectorDetail    string // JSON-encoded list
	MoreInformation string
	ContactEmail    string
	CreatedAt       time.Time
}
