package model

import "time"

// App represents a mobile application registered with rategate. The store and
// feedback URLs are the routing destinations handed back to the client when a
// prompt resolves; rategate itself never calls them.
type App struct {
	ID          string // stable identifier, e.g. "com.example.podcasts"
	Name        string
	StoreURL    string
	FeedbackURL string
	AddedAt     time.Time
}
