package catalog

import (
	"testing"

	"github.com/voyagen/channelvault/internal/models"
)

func names(channels []models.Channel) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = ch.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiff_classifies(t *testing.T) {
	prev := []models.Channel{
		{Name: "CNN", TvgID: "cnn", URL: "http://a/cnn"},
		{Name: "BBC", TvgID: "bbc", URL: "http://a/bbc"},
		{Name: "Local", URL: "http://a/local"},
	}
	next := []models.Channel{
		{Name: "CNN International", TvgID: "CNN", URL: "http://a/cnn"},
		{Name: "BBC", TvgID: "bbc", URL: "http://b/bbc"},
		{Name: "ESPN", URL: "http://a/espn"},
	}
	d := Diff(prev, next)

	if got := names(d.Added); !equalStrings(got, []string{"ESPN"}) {
		t.Errorf("added = %v", got)
	}
	if got := names(d.Removed); !equalStrings(got, []string{"Local"}) {
		t.Errorf("removed = %v", got)
	}
	if got := names(d.Unchanged); !equalStrings(got, []string{"CNN International"}) {
		t.Errorf("unchanged = %v", got)
	}
	if len(d.Updated) != 1 || d.Updated[0].Before.URL != "http://a/bbc" || d.Updated[0].After.URL != "http://b/bbc" {
		t.Errorf("updated = %+v", d.Updated)
	}
}

func TestDiff_emptyPrevious(t *testing.T) {
	next := []models.Channel{{Name: "A", URL: "u1"}, {Name: "B", URL: "u2"}}
	d := Diff(nil, next)
	if len(d.Added) != 2 || len(d.Removed) != 0 || len(d.Updated) != 0 || len(d.Unchanged) != 0 {
		t.Errorf("summary = %+v", d.Summary())
	}
}

func TestDiff_emptyKeysIgnored(t *testing.T) {
	prev := []models.Channel{{URL: "u0"}}
	next := []models.Channel{{URL: "u1"}, {Name: "Named", URL: "u2"}}
	d := Diff(prev, next)
	s := d.Summary()
	if s != (models.DiffSummary{Added: 1}) {
		t.Errorf("summary = %+v, want only one added", s)
	}
}

func TestDiff_duplicateKeysLastWins(t *testing.T) {
	prev := []models.Channel{{Name: "dup", URL: "first"}, {Name: "DUP", URL: "second"}}
	next := []models.Channel{{Name: "dup", URL: "second"}}
	d := Diff(prev, next)
	if len(d.Unchanged) != 1 || len(d.Updated) != 0 {
		t.Errorf("summary = %+v, want one unchanged", d.Summary())
	}
}

func TestDiff_identicalLists(t *testing.T) {
	list := []models.Channel{{Name: "A", URL: "1"}, {TvgID: "b", Name: "B", URL: "2"}}
	d := Diff(list, list)
	if s := d.Summary(); s != (models.DiffSummary{Unchanged: 2}) {
		t.Errorf("summary = %+v", s)
	}
}

func TestDiff_partitionCoversKeys(t *testing.T) {
	prev := []models.Channel{{Name: "a", URL: "1"}, {Name: "b", URL: "2"}, {Name: "c", URL: "3"}}
	next := []models.Channel{{Name: "b", URL: "2"}, {Name: "c", URL: "x"}, {Name: "d", URL: "4"}}
	d := Diff(prev, next)
	s := d.Summary()
	if s.Added+s.Updated+s.Unchanged != 3 {
		t.Errorf("next keys covered = %d, want 3", s.Added+s.Updated+s.Unchanged)
	}
	if s.Removed+s.Updated+s.Unchanged != 3 {
		t.Errorf("prev keys covered = %d, want 3", s.Removed+s.Updated+s.Unchanged)
	}
}
