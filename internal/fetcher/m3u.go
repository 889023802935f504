package fetcher

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/voyagen/channelvault/internal/models"
)

var (
	// Each value is either "double" or 'single' quoted; the other quote
	// character may appear inside it.
	reTvgID     = regexp.MustCompile(`tvg-id=(?:"([^"]*)"|'([^']*)')`)
	reTvgName   = regexp.MustCompile(`tvg-name=(?:"([^"]*)"|'([^']*)')`)
	reTvgLogo   = regexp.MustCompile(`tvg-logo=(?:"([^"]*)"|'([^']*)')`)
	reGroup     = regexp.MustCompile(`group-title=(?:"([^"]*?)"|'([^']*?)')`)
	reTvgAttr   = regexp.MustCompile(`tvg-[a-zA-Z]+=(?:"[^"]*"|'[^']*')`)
	reGroupAttr = regexp.MustCompile(`group-title=(?:"[^"]*"|'[^']*')`)
	reLeadNum   = regexp.MustCompile(`^-?\d+\s+`)
	reEdges     = regexp.MustCompile(`^[,\s-]+|[,\s-]+$`)
)

// parseState is the parser's position relative to a channel entry.
type parseState int

const (
	// stateIdle: no #EXTINF is waiting for its locator line.
	stateIdle parseState = iota
	// statePending: an #EXTINF was read; auxiliary directives are buffered
	// until the locator line finalizes the channel.
	statePending
)

// m3uParser is a single-pass state machine over playlist lines.
type m3uParser struct {
	state      parseState
	pending    models.Channel
	aux        []string
	channels   []models.Channel
	categories map[string]struct{}
}

// maxLineSize bounds a single playlist line. Longer lines are discarded
// together with the entry they belong to.
const maxLineSize = 1024 * 1024

// ParseM3U reads an M3U playlist from r. Malformed fragments, including lines
// over maxLineSize, are dropped, never reported; the only error is a read
// error from r.
func ParseM3U(r io.Reader) (ParseResult, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	p := &m3uParser{categories: make(map[string]struct{})}

	var buf []byte
	oversized := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ParseResult{}, err
		}
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}
		if oversized {
			p.discard()
			oversized = false
		} else {
			p.line(strings.TrimSpace(string(buf)))
		}
		buf = buf[:0]
	}
	return p.result(), nil
}

// ParseM3UString parses an in-memory playlist document.
func ParseM3UString(content string) (ParseResult, error) {
	return ParseM3U(strings.NewReader(content))
}

func (p *m3uParser) line(line string) {
	switch {
	case strings.HasPrefix(line, models.DirectiveExtinf):
		// A second #EXTINF before a locator abandons the pending entry.
		p.pending = parseExtinf(line)
		p.aux = nil
		p.state = statePending
		if p.pending.Category != "" {
			p.categories[p.pending.Category] = struct{}{}
		}
	case strings.HasPrefix(line, models.DirectiveKodiProp), strings.HasPrefix(line, models.DirectiveVLCOpt):
		if p.state == statePending {
			p.aux = append(p.aux, line)
		}
	case line != "" && !strings.HasPrefix(line, models.DirectiveComment):
		if p.state != statePending {
			return
		}
		ch := p.pending
		ch.URL = line
		ch.ID = len(p.channels) + 1
		if len(p.aux) > 0 {
			ch.AuxProps = p.aux
		}
		p.channels = append(p.channels, ch)
		p.discard()
	}
}

// discard abandons the pending entry, if any.
func (p *m3uParser) discard() {
	p.pending = models.Channel{}
	p.aux = nil
	p.state = stateIdle
}

func (p *m3uParser) result() ParseResult {
	categories := make([]string, 0, len(p.categories))
	for c := range p.categories {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return ParseResult{Channels: p.channels, Categories: categories}
}

// parseExtinf extracts display attributes from an #EXTINF line.
func parseExtinf(line string) models.Channel {
	return models.Channel{
		Name:     channelName(line),
		TvgID:    matchFirst(reTvgID, line),
		TvgName:  matchFirst(reTvgName, line),
		Logo:     matchFirst(reTvgLogo, line),
		Category: matchFirst(reGroup, line),
	}
}

// channelName cleans the title after the last comma. It never returns "".
func channelName(line string) string {
	title := ""
	if i := strings.LastIndex(line, ","); i >= 0 {
		title = strings.TrimSpace(line[i+1:])
	}
	title = strings.TrimSpace(reTvgAttr.ReplaceAllString(title, ""))
	title = strings.TrimSpace(reGroupAttr.ReplaceAllString(title, ""))
	title = strings.TrimSpace(reLeadNum.ReplaceAllString(title, ""))
	title = strings.TrimSpace(reEdges.ReplaceAllString(title, ""))
	if punctuationOnly(title) {
		return placeholderName()
	}
	return title
}

// punctuationOnly reports whether s is empty or holds nothing but
// punctuation and spaces. Symbols such as ★ count as content.
func punctuationOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// placeholderName synthesizes a display name for untitled entries. Two
// placeholders never collide in practice, so such channels never match
// across refreshes.
func placeholderName() string {
	return "Channel " + uuid.NewString()[:8]
}

// matchFirst returns the value captured by whichever quote alternative of re
// matched first in s.
func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return ""
	}
	for g := 1; 2*g+1 < len(m); g++ {
		if m[2*g] >= 0 {
			return s[m[2*g]:m[2*g+1]]
		}
	}
	return ""
}
