package catalog

import (
	"strings"

	"github.com/voyagen/channelvault/internal/models"
)

// IdentityKey is the key used to match a channel across generations:
// lower(tvg-id) if set, else lower(name). Channels with neither yield ""
// and take no part in diffing.
func IdentityKey(ch models.Channel) string {
	if ch.TvgID != "" {
		return strings.ToLower(ch.TvgID)
	}
	return strings.ToLower(ch.Name)
}

// keyedChannels indexes channels by identity key, keeping first-seen key
// order. A key seen twice keeps the last channel.
type keyedChannels struct {
	order []string
	byKey map[string]models.Channel
}

func indexChannels(channels []models.Channel) keyedChannels {
	k := keyedChannels{byKey: make(map[string]models.Channel, len(channels))}
	for _, ch := range channels {
		key := IdentityKey(ch)
		if key == "" {
			continue
		}
		if _, ok := k.byKey[key]; !ok {
			k.order = append(k.order, key)
		}
		k.byKey[key] = ch
	}
	return k
}

// Diff classifies channels of next against prev. A matched channel whose URL
// differs is updated; otherwise unchanged. Output follows input order.
func Diff(prev, next []models.Channel) models.DiffResult {
	before := indexChannels(prev)
	after := indexChannels(next)
	res := models.DiffResult{
		Added:     []models.Channel{},
		Removed:   []models.Channel{},
		Updated:   []models.ChannelUpdate{},
		Unchanged: []models.Channel{},
	}
	for _, key := range after.order {
		cur := after.byKey[key]
		old, ok := before.byKey[key]
		switch {
		case !ok:
			res.Added = append(res.Added, cur)
		case old.URL != cur.URL:
			res.Updated = append(res.Updated, models.ChannelUpdate{Before: old, After: cur})
		default:
			res.Unchanged = append(res.Unchanged, cur)
		}
	}
	for _, key := range before.order {
		if _, ok := after.byKey[key]; !ok {
			res.Removed = append(res.Removed, before.byKey[key])
		}
	}
	return res
}
