package models

import "time"

// Article is the slice of a scraped news item the publishing core reads.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is what the content generator returns for an article.
type Draft struct {
	Content  string `json:"content"`
	Hashtags string `json:"hashtags"`
}
