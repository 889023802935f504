package catalog

import (
	"strings"

	"github.com/samber/lo"
	"github.com/voyagen/channelvault/internal/models"
)

// Rules are keyword filters matched case-insensitively against channel names.
type Rules struct {
	Blacklist []string
	Whitelist []string
}

// Active reports whether any rule is configured.
func (r Rules) Active() bool {
	return len(r.Blacklist) > 0 || len(r.Whitelist) > 0
}

// Filter drops channels whose name contains a blacklisted keyword, then keeps
// only channels whose name contains a whitelisted keyword (if any are set).
// The input slice is not modified.
func Filter(channels []models.Channel, rules Rules) []models.Channel {
	out := channels
	if black := lowerKeywords(rules.Blacklist); len(black) > 0 {
		out = lo.Reject(out, func(ch models.Channel, _ int) bool {
			return nameContainsAny(ch.Name, black)
		})
	}
	if white := lowerKeywords(rules.Whitelist); len(white) > 0 {
		out = lo.Filter(out, func(ch models.Channel, _ int) bool {
			return nameContainsAny(ch.Name, white)
		})
	}
	return out
}

func lowerKeywords(keywords []string) []string {
	return lo.Map(keywords, func(k string, _ int) string {
		return strings.ToLower(k)
	})
}

func nameContainsAny(name string, keywords []string) bool {
	name = strings.ToLower(name)
	return lo.SomeBy(keywords, func(k string) bool {
		return strings.Contains(name, k)
	})
}
