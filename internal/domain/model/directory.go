package model

import "time"

// Business is a directory listing. Only the fields the SDK surface needs are
// mapped; the backend carries more.
type Business struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	PhotoURLs   []string `json:"photo_urls"`
	IsVerified  bool     `json:"is_verified"`
}

// Product is an item offered by a business.
type Product struct {
	ID          string  `json:"id"`
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	InStock     bool    `json:"in_stock"`
}

// Service is a service offering listed by a business.
type Service struct {
	ID          string  `json:"id"`
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

// Review is a user review of a business.
type Review struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	AuthorID   string    `json:"author_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	LikeCount  int       `json:"like_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewInput is the payload for creating a review.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// DayHours is the opening window for a single weekday. Closed days carry
// empty Open/Close strings.
type DayHours struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// BusinessHours is the weekly schedule for a business.
type BusinessHours struct {
	BusinessID string     `json:"business_id"`
	Days       []DayHours `json:"days"`
}

// AnalyticsSummary is the public view-count summary for a business.
type AnalyticsSummary struct {
	BusinessID    string `json:"business_id"`
	ProfileViews  int    `json:"profile_views"`
	SearchHits    int    `json:"search_hits"`
	ContactClicks int    `json:"contact_clicks"`
}
