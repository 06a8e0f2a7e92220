package m3u

import (
	"fmt"
	"io"
	"strings"
)

// Writer provides streaming M3U writing.
type Writer struct {
	w             io.Writer
	headerWritten bool
}

// NewWriter creates a new M3U writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the #EXTM3U header. It is written at most once.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := io.WriteString(w.w, headerTag+"\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteChannel writes a channel's EXTINF line followed by its URL line,
// writing the header first if needed. A missing URL produces an empty line.
func (w *Writer) WriteChannel(ch *Channel) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if _, err := io.WriteString(w.w, ExtinfLine(ch)+"\n"+ch.URL+"\n"); err != nil {
		return fmt.Errorf("writing channel: %w", err)
	}
	return nil
}

// ExtinfLine renders the #EXTINF line for ch:
//
//	#EXTINF:{duration} {k1="v1" k2="v2"},{title}
//
// The attribute segment is omitted when there are no attributes. Double
// quotes inside values are replaced with apostrophes.
func ExtinfLine(ch *Channel) string {
	var b strings.Builder
	b.WriteString(extinfTag + ":")
	b.WriteString(ch.Duration)

	if ch.Attrs != nil && ch.Attrs.Len() > 0 {
		for pair := ch.Attrs.Oldest(); pair != nil; pair = pair.Next() {
			b.WriteByte(' ')
			b.WriteString(pair.Key)
			b.WriteString(`="`)
			b.WriteString(escapeQuotes(pair.Value))
			b.WriteByte('"')
		}
	}

	b.WriteByte(',')
	b.WriteString(ch.Title)
	return b.String()
}

// Serialize renders channels as a complete playlist.
func Serialize(channels []Channel) string {
	var b strings.Builder
	w := NewWriter(&b)
	_ = w.WriteHeader()
	for i := range channels {
		_ = w.WriteChannel(&channels[i])
	}
	return b.String()
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}
