package models

// Source outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// PlaceholderURL is the documented "not configured" source URL.
const PlaceholderURL = "http://example.com"

// M3U directive prefixes (case-sensitive).
const (
	DirectiveComment  = "#"
	DirectiveExtinf   = "#EXTINF:"
	DirectiveKodiProp = "#KODIPROP:"
	DirectiveVLCOpt   = "#EXTVLCOPT:"
)
