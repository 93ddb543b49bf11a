package feed

import (
	"time"
)

// Entry is a feed item normalized for ingestion.
type Entry struct {
	Permalink string
	Title     string
	Summary   string    // Plain text, markup stripped
	UpdatedAt *time.Time // nil when the item carries neither updated nor published date
}

// Configuration types

type Config struct {
	Name            string // Derived from filename (without .yml extension)
	URL             string `yaml:"url"`
	MonthlyVisitors int64  `yaml:"monthly_visitors"`
}
