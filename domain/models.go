package domain

import "time"

// HealthStatus is the derived classification of a feed.
type HealthStatus string

const (
	HealthActive  HealthStatus = "active"
	HealthWarning HealthStatus = "warning"
	HealthError   HealthStatus = "error"
)

// Health is the health record kept for every feed.
type Health struct {
	IsValid             bool         `json:"is_valid"`
	Status              HealthStatus `json:"status"`
	LastFetch           time.Time    `json:"last_fetch"`
	LastSuccessfulFetch time.Time    `json:"last_successful_fetch"`
	ErrorCount          int          `json:"error_count"`
	Message             string       `json:"message"`
}

type Feed struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Category     string    `json:"category"`
	Description  string    `json:"description,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	IsActive     bool      `json:"is_active"`
	ArticleCount int       `json:"article_count"`
	LastUpdated  time.Time `json:"last_updated"`
	Health       Health    `json:"health"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Article struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
	FeedID      string    `json:"feed_id"`
}

// FetchedItem is a simplified representation returned by RSS fetchers.
type FetchedItem struct {
	Title       string
	Link        string
	Description string
	Author      string
	PublishedAt time.Time
}

// FetchedFeed is one parsed fetch of a feed document.
type FetchedFeed struct {
	Title       string
	Description string
	Items       []FetchedItem
}

// ImportRequest describes a feed to validate and import.
type ImportRequest struct {
	Category string   `json:"category"`
	URL      string   `json:"url"`
	Title    string   `json:"title,omitempty"`
	Name     string   `json:"name,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// ValidationResult is the outcome of validating a feed URL. Error carries the
// rejection reason when IsValid is false and an advisory warning otherwise.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Error   string `json:"error,omitempty"`
	Title   string `json:"title,omitempty"`
	FeedURL string `json:"feed_url,omitempty"`
}

// ProbeResult is what a network probe learned about a URL.
type ProbeResult struct {
	FeedURL    string
	Title      string
	ItemCount  int
	Discovered bool
}
