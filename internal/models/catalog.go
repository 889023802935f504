package models

import "time"

// Catalog is one published generation of the merged channel list.
// A Catalog is never modified after it has been published; a refresh builds
// a new one and swaps it in.
type Catalog struct {
	Channels    []Channel             `json:"channels"`
	Categories  []string              `json:"categories"`
	LastRefresh time.Time             `json:"timestamp"`
	SourceStats map[string]SourceStat `json:"sourceStats"`
	Diff        *DiffResult           `json:"-"`
}

// Empty reports whether the catalog holds no channels.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.Channels) == 0
}

// DiffResult classifies channels between two catalog generations.
type DiffResult struct {
	Added     []Channel       `json:"added"`
	Removed   []Channel       `json:"removed"`
	Updated   []ChannelUpdate `json:"updated"`
	Unchanged []Channel       `json:"unchanged"`
}

// DiffSummary holds the sizes of each DiffResult list.
type DiffSummary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Summary returns the counts of d. A nil DiffResult yields zero counts.
func (d *DiffResult) Summary() DiffSummary {
	if d == nil {
		return DiffSummary{}
	}
	return DiffSummary{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Updated:   len(d.Updated),
		Unchanged: len(d.Unchanged),
	}
}
