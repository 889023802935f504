package fetcher

import "github.com/voyagen/channelvault/internal/models"

// ParseResult is the outcome of parsing one playlist document.
// Channel IDs are local to the document (1-based, in order of appearance).
type ParseResult struct {
	Channels   []models.Channel
	Categories []string // distinct group-title values, sorted
}
