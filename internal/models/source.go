package models

import "time"

// Source represents one configured playlist feed.
type Source struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// SourceStat is the outcome of the most recent fetch of a source.
type SourceStat struct {
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	ChannelCount  int       `json:"channelCount"`
	CategoryCount int       `json:"categoryCount"`
	LastRefresh   time.Time `json:"lastRefresh"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// Failed reports whether the last fetch of the source failed.
func (s SourceStat) Failed() bool {
	return s.Status == StatusFailed
}
