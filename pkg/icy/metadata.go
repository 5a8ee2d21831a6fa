package icy

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Metadata is the parsed form of one inband metadata block.
type Metadata struct {
	// StreamTitle is the current track title. Empty means the block carried
	// no usable title (absent field, or a placeholder such as "-" or ";").
	StreamTitle string

	// StreamURL is an optional secondary URL some servers include. It is
	// used as a hint that a JSON status endpoint exists for this stream.
	StreamURL string
}

var (
	streamTitleRe = regexp.MustCompile(`StreamTitle='(.*?)'(?:;|$)`)
	streamURLRe   = regexp.MustCompile(`StreamUrl='(.*?)'(?:;|$)`)
)

// NewMetadata parses a raw metadata block. Blocks are NUL-padded key='value'
// pairs separated by semicolons. Malformed input is not an error; any field
// that cannot be extracted is simply left empty.
func NewMetadata(b []byte) Metadata {
	s := strings.Trim(string(b), "\x00")

	var m Metadata
	if match := streamTitleRe.FindStringSubmatch(s); match != nil {
		m.StreamTitle = normalizeTitle(match[1])
	}
	if match := streamURLRe.FindStringSubmatch(s); match != nil {
		m.StreamURL = strings.TrimSpace(match[1])
	}

	return m
}

// placeholders are values some servers send instead of omitting the title.
var placeholders = map[string]struct{}{
	"":  {},
	"-": {},
	";": {},
}

func normalizeTitle(s string) string {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if _, ok := placeholders[s]; ok {
		return ""
	}
	return s
}

// TitleFromStatus extracts the current track title from a JSON status
// document, looking up the current.item.title path. Decode failures and
// missing fields yield an empty title, never an error; the caller treats an
// empty result as "try again next interval".
func TitleFromStatus(b []byte) string {
	var doc struct {
		Current struct {
			Item struct {
				Title string `json:"title"`
			} `json:"item"`
		} `json:"current"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return ""
	}
	return normalizeTitle(doc.Current.Item.Title)
}
