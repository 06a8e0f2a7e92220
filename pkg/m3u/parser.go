// Package m3u provides streaming parsing and writing of extended M3U
// playlists as served by Xtream Codes panels.
//
// Parsing keeps every EXTINF attribute in first-seen order so a playlist
// can be filtered and written back without losing data. The one lossy step
// is on output: double quotes inside attribute values become apostrophes.
package m3u

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
)

// Well-known attribute names.
const (
	AttrTvgID      = "tvg-id"
	AttrTvgName    = "tvg-name"
	AttrTvgLogo    = "tvg-logo"
	AttrGroupTitle = "group-title"
)

const (
	headerTag = "#EXTM3U"
	extinfTag = "#EXTINF"

	// DefaultMaxLineSize bounds a single playlist line.
	DefaultMaxLineSize = 1024 * 1024
)

var (
	durationRegex = regexp.MustCompile(`(?i)^#EXTINF:(-?[0-9]+)`)
	attrRegex     = regexp.MustCompile(`([A-Za-z0-9_-]+)="(.*?)"`)
)

// Parser provides streaming M3U parsing with callback-based processing.
type Parser struct {
	// OnChannel is called for each parsed channel, in playlist order.
	OnChannel func(ch *Channel) error

	// MaxLineSize overrides DefaultMaxLineSize when positive.
	MaxLineSize int
}

// Parse parses text into channels. It never fails: malformed lines are
// skipped.
func Parse(text string) []Channel {
	var channels []Channel
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			channels = append(channels, *ch)
			return nil
		},
		MaxLineSize: len(text) + 1,
	}
	_ = p.Parse(strings.NewReader(text))
	if channels == nil {
		channels = []Channel{}
	}
	return channels
}

// Parse reads a playlist from r, calling OnChannel for each record.
//
// A record starts at a line beginning with #EXTINF (any case). Its URL is
// the next line that is neither blank nor a comment; a following #EXTINF
// or the end of input leaves the URL empty.
func (p *Parser) Parse(r io.Reader) error {
	if p.OnChannel == nil {
		return fmt.Errorf("OnChannel callback is required")
	}

	maxLine := p.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(maxLine, 64*1024)), maxLine)
	scanner.Split(scanLines)

	var pending *Channel
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if isExtinf(line) {
			if pending != nil {
				if err := p.OnChannel(pending); err != nil {
					return fmt.Errorf("callback error at line %d: %w", lineNum, err)
				}
			}
			pending = parseExtinf(line)
			continue
		}

		if strings.HasPrefix(line, "#") || pending == nil {
			continue
		}

		pending.URL = line
		if err := p.OnChannel(pending); err != nil {
			return fmt.Errorf("callback error at line %d: %w", lineNum, err)
		}
		pending = nil
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning M3U: %w", err)
	}
	if pending != nil {
		if err := p.OnChannel(pending); err != nil {
			return fmt.Errorf("callback error at end of input: %w", err)
		}
	}
	return nil
}

// ParseCompressed parses a playlist that may be gzip, bzip2 or xz
// compressed, detected from its magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br
	switch {
	case bytes.HasPrefix(header, []byte{0x1f, 0x8b}):
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case bytes.HasPrefix(header, []byte("BZh")):
		bzr, err := bzip2.NewReader(br, nil)
		if err != nil {
			return fmt.Errorf("creating bzip2 reader: %w", err)
		}
		defer bzr.Close()
		reader = bzr

	case bytes.HasPrefix(header, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

// HasHeader reports whether text contains #EXTM3U in any case.
func HasHeader(text string) bool {
	return strings.Contains(strings.ToUpper(text), headerTag)
}

func isExtinf(line string) bool {
	return len(line) >= len(extinfTag) && strings.EqualFold(line[:len(extinfTag)], extinfTag)
}

// parseExtinf builds a channel from a trimmed #EXTINF line. Everything
// before the first comma is the header holding duration and attributes;
// the rest is the title.
func parseExtinf(line string) *Channel {
	header, title, _ := strings.Cut(line, ",")

	ch := &Channel{
		Title:     strings.TrimSpace(title),
		Attrs:     NewAttrs(),
		RawExtinf: line,
	}
	if m := durationRegex.FindStringSubmatch(header); m != nil {
		ch.Duration = m[1]
	}
	for _, m := range attrRegex.FindAllStringSubmatch(header, -1) {
		ch.Attrs.Set(m[1], m[2])
	}
	return ch
}

// scanLines splits on \n, \r\n and a lone \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
