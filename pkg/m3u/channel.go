package m3u

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attrs holds EXTINF attributes in the order they first appeared.
type Attrs = orderedmap.OrderedMap[string, string]

// NewAttrs returns an empty attribute map.
func NewAttrs() *Attrs {
	return orderedmap.New[string, string]()
}

// Channel is a single playlist record.
type Channel struct {
	Title string `json:"title"`
	// Duration is the EXTINF duration as written, "" when absent.
	Duration string `json:"duration"`
	Attrs    *Attrs `json:"attrs"`
	URL      string `json:"url"`
	// RawExtinf is the trimmed #EXTINF line the record was parsed from.
	RawExtinf string `json:"raw_extinf"`
}

// Attr returns the value of an attribute, or "" when it is missing.
func (c *Channel) Attr(key string) string {
	if c.Attrs == nil {
		return ""
	}
	v, _ := c.Attrs.Get(key)
	return v
}

// Group returns the group-title attribute.
func (c *Channel) Group() string {
	return c.Attr(AttrGroupTitle)
}

// Clone returns a copy of the channel with its own attribute map.
func (c *Channel) Clone() Channel {
	out := *c
	if c.Attrs != nil {
		out.Attrs = NewAttrs()
		for pair := c.Attrs.Oldest(); pair != nil; pair = pair.Next() {
			out.Attrs.Set(pair.Key, pair.Value)
		}
	}
	return out
}

// MarshalJSON encodes the channel with a fixed field order and attributes
// in insertion order. HTML characters are not escaped.
func (c Channel) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	fields := []struct {
		key   string
		value string
	}{
		{"title", c.Title},
		{"duration", c.Duration},
	}
	for _, f := range fields {
		writeString(&buf, f.key)
		buf.WriteByte(':')
		writeString(&buf, f.value)
		buf.WriteByte(',')
	}

	writeString(&buf, "attrs")
	buf.WriteString(":{")
	if c.Attrs != nil {
		first := true
		for pair := c.Attrs.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeString(&buf, pair.Key)
			buf.WriteByte(':')
			writeString(&buf, pair.Value)
		}
	}
	buf.WriteString("},")

	writeString(&buf, "url")
	buf.WriteByte(':')
	writeString(&buf, c.URL)
	buf.WriteByte(',')
	writeString(&buf, "raw_extinf")
	buf.WriteByte(':')
	writeString(&buf, c.RawExtinf)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a channel, replacing a missing or null attrs
// object with an empty one.
func (c *Channel) UnmarshalJSON(data []byte) error {
	type plain Channel
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decoding channel: %w", err)
	}
	if p.Attrs == nil {
		p.Attrs = NewAttrs()
	}
	*c = Channel(p)
	return nil
}

// writeString appends s as a JSON string literal without HTML escaping.
func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
}
