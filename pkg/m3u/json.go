package m3u

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter writes channels as a pretty-printed JSON array one record at
// a time.
//
// Output layout:
//
//	[
//	  {
//	    "title": "...",
//	    ...
//	  },
//	  {
//	    ...
//	  }
//	]
type JSONWriter struct {
	w     io.Writer
	count int
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// Write appends one channel to the array.
func (j *JSONWriter) Write(ch *Channel) error {
	raw, err := ch.MarshalJSON()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if j.count == 0 {
		buf.WriteString("[\n")
	} else {
		buf.WriteString(",\n")
	}
	buf.WriteString("  ")
	if err := json.Indent(&buf, raw, "  ", "  "); err != nil {
		return fmt.Errorf("indenting channel: %w", err)
	}

	if _, err := j.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing channel: %w", err)
	}
	j.count++
	return nil
}

// Close terminates the array. It does not close the underlying writer.
func (j *JSONWriter) Close() error {
	closing := "\n]\n"
	if j.count == 0 {
		closing = "[\n]\n"
	}
	if _, err := io.WriteString(j.w, closing); err != nil {
		return fmt.Errorf("closing array: %w", err)
	}
	return nil
}

// Count returns the number of channels written.
func (j *JSONWriter) Count() int {
	return j.count
}

// WriteJSON writes channels as a complete JSON array.
func WriteJSON(w io.Writer, channels []Channel) error {
	jw := NewJSONWriter(w)
	for i := range channels {
		if err := jw.Write(&channels[i]); err != nil {
			return err
		}
	}
	return jw.Close()
}

// ReadJSON decodes a JSON array of channels.
func ReadJSON(r io.Reader) ([]Channel, error) {
	var channels []Channel
	if err := json.NewDecoder(r).Decode(&channels); err != nil {
		return nil, fmt.Errorf("decoding playlist JSON: %w", err)
	}
	if channels == nil {
		channels = []Channel{}
	}
	return channels, nil
}
