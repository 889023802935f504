package models

// Channel represents a single playable entry from an M3U playlist.
// ID is assigned per catalog generation and must not be used to match
// channels across refreshes; see catalog.IdentityKey.
type Channel struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Logo       string   `json:"logo"`
	TvgID      string   `json:"tvgId"`
	TvgName    string   `json:"tvgName"`
	URL        string   `json:"url"`
	AuxProps   []string `json:"kodiProps,omitempty"` // raw #KODIPROP / #EXTVLCOPT lines
	SourceID   string   `json:"sourceId,omitempty"`
	SourceName string   `json:"sourceName,omitempty"`
}

// ChannelUpdate pairs the previous and current version of a channel whose URL changed.
type ChannelUpdate struct {
	Before Channel `json:"before"`
	After  Channel `json:"after"`
}
