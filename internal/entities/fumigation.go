package entities

import "time"

// FumigationCity is a row of the fumigation progress dataset
type FumigationCity struct {
	City          string  `json:"city" yaml:"city"`
	Progress      int     `json:"progress" yaml:"progress"` // percent complete
	Latitude      float64 `json:"latitude" yaml:"latitude"`
	Longitude     float64 `json:"longitude" yaml:"longitude"`
	EstimatedDays int     `json:"estimated_days" yaml:"estimated_days"`
}

// TimelinePoint is the expected progress (0-1) on a given day
type TimelinePoint struct {
	Day      int     `json:"day"`
	Progress float64 `json:"progress"`
}

// Feedback is a comment left on the fumigation page
type Feedback struct {
	ID        int64
	City      string
	Message   string
	CreatedAt time.Time
}

// Subscriber is a Telegram chat that receives community alerts
type Subscriber struct {
	ChatID       int64
	UserName     string
	SubscribedAt time.Time
}
