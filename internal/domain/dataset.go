package domain

import "time"

// Dataset is an uploaded CSV file together with what was learned while parsing it.
type Dataset struct {
	CreatedAt     time.Time
	ID            string
	Name          string
	Content       []byte
	RowCount      int
	DroppedRows   int
	HasTimestamps bool
}

// Actor is a distinct originating account of a dataset, used to populate the
// actor selector of the dashboard.
type Actor struct {
	ID   string
	Name string
}

// LoadResult is the outcome of parsing an uploaded file. Malformed rows are
// not fatal: they are dropped, counted in Dropped and described in Problems.
type LoadResult struct {
	Records       []TransactionRecord
	Problems      []MalformedValueError
	Dropped       int
	HasTimestamps bool
}
