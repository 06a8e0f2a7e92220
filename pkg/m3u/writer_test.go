package m3u

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func channelWithAttrs(title, duration, url string, kv ...string) Channel {
	ch := Channel{Title: title, Duration: duration, URL: url, Attrs: NewAttrs()}
	for i := 0; i+1 < len(kv); i += 2 {
		ch.Attrs.Set(kv[i], kv[i+1])
	}
	return ch
}

func TestExtinfLine(t *testing.T) {
	tests := []struct {
		name string
		ch   Channel
		want string
	}{
		{
			name: "with attributes",
			ch:   channelWithAttrs("Channel A", "-1", "", "tvg-id", "1", "group-title", "News"),
			want: `#EXTINF:-1 tvg-id="1" group-title="News",Channel A`,
		},
		{
			name: "without attributes",
			ch:   channelWithAttrs("Bare", "-1", ""),
			want: `#EXTINF:-1,Bare`,
		},
		{
			name: "nil attrs",
			ch:   Channel{Title: "Nil", Duration: "10"},
			want: `#EXTINF:10,Nil`,
		},
		{
			name: "empty duration kept",
			ch:   channelWithAttrs("T", "", "", "a", "b"),
			want: `#EXTINF: a="b",T`,
		},
		{
			name: "quotes replaced",
			ch:   channelWithAttrs("Q", "-1", "", "tvg-name", `The "Best" TV`),
			want: `#EXTINF:-1 tvg-name="The 'Best' TV",Q`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtinfLine(&tt.ch); got != tt.want {
				t.Errorf("ExtinfLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerialize(t *testing.T) {
	channels := []Channel{
		channelWithAttrs("Channel A", "-1", "http://x/a.ts", "tvg-id", "1"),
		channelWithAttrs("No URL", "-1", ""),
	}

	got := Serialize(channels)

	want := "#EXTM3U\n#EXTINF:-1 tvg-id=\"1\",Channel A\nhttp://x/a.ts\n#EXTINF:-1,No URL\n\n"
	if got != want {
		t.Errorf("Serialize() = %q, want %q", got, want)
	}
	if Serialize(nil) != "#EXTM3U\n" {
		t.Errorf("Serialize(nil) = %q", Serialize(nil))
	}
}

func TestWriter_HeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		t.Fatal(err)
	}
	ch := channelWithAttrs("A", "-1", "http://a")
	if err := w.WriteChannel(&ch); err != nil {
		t.Fatal(err)
	}
	if bytes.Count(buf.Bytes(), []byte("#EXTM3U")) != 1 {
		t.Errorf("expected a single header, got %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_PropagatesErrors(t *testing.T) {
	w := NewWriter(failingWriter{})
	ch := channelWithAttrs("A", "-1", "http://a")
	if err := w.WriteChannel(&ch); err == nil {
		t.Error("expected write error")
	}
}

type channelSummary struct {
	Title, Duration, URL string
	Attrs                [][2]string
}

func summarize(channels []Channel) []channelSummary {
	out := make([]channelSummary, len(channels))
	for i, ch := range channels {
		c := channelSummary{Title: ch.Title, Duration: ch.Duration, URL: ch.URL}
		for pair := ch.Attrs.Oldest(); pair != nil; pair = pair.Next() {
			c.Attrs = append(c.Attrs, [2]string{pair.Key, pair.Value})
		}
		out[i] = c
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"#EXTM3U\n#EXTINF:-1 tvg-id=\"1\" group-title=\"News\",Channel A\nhttp://x/a.ts\n",
		"#EXTM3U\n#EXTINF:-1 tvg-id=\"x\" tvg-logo=\"http://l/x.png?a=1&b=2\" group-title=\"Movies\",Film\nhttp://x/f.mp4\n#EXTINF:,Empty duration\nhttp://x/e\n#EXTINF:0,Missing URL\n#EXTINF:-1 z=\"1\" a=\"2\",Ordered\nhttp://x/o\n",
		"#EXTINF:-1,Only title\r\nhttp://x/1\r\n",
		"",
	}

	for _, text := range inputs {
		first := Parse(text)
		second := Parse(Serialize(first))
		if !reflect.DeepEqual(summarize(first), summarize(second)) {
			t.Errorf("round trip mismatch for %q:\nfirst:  %+v\nsecond: %+v", text, summarize(first), summarize(second))
		}
	}
}
