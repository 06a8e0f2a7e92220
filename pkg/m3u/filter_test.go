package m3u

import "testing"

func filterFixture() []Channel {
	return []Channel{
		channelWithAttrs("BBC News", "-1", "http://x/1", "group-title", "UK | News", "tvg-name", "BBC News HD"),
		channelWithAttrs("Sky Sports", "-1", "http://x/2", "group-title", "UK | Sports", "tvg-id", "sky.uk"),
		channelWithAttrs("CNN", "-1", "http://x/3", "group-title", "US | NEWS"),
		channelWithAttrs("Local", "-1", "http://x/4"),
	}
}

func titles(channels []Channel) []string {
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = ch.Title
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		keyword string
		want    []string
	}{
		{"title case-insensitive", FieldTitle, "bbc", []string{"BBC News"}},
		{"group maps to group-title", FieldGroup, "news", []string{"BBC News", "CNN"}},
		{"keyword trimmed", FieldGroup, "  sports ", []string{"Sky Sports"}},
		{"arbitrary attribute", "tvg-id", "SKY", []string{"Sky Sports"}},
		{"missing attribute never matches", "tvg-name", "cnn", []string{}},
		{"no matches", FieldTitle, "zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titles(Filter(filterFixture(), tt.field, tt.keyword))
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Filter()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFilter_EmptyKeywordReturnsCopy(t *testing.T) {
	in := filterFixture()

	for _, kw := range []string{"", "   "} {
		out := Filter(in, FieldTitle, kw)
		if len(out) != len(in) {
			t.Fatalf("keyword %q: expected %d channels, got %d", kw, len(in), len(out))
		}
		out[0].Title = "changed"
		if in[0].Title != "BBC News" {
			t.Errorf("keyword %q: filter result aliases the input slice", kw)
		}
	}
}

func TestFilter_ResultIsIndependent(t *testing.T) {
	for _, keyword := range []string{"", "news"} {
		channels := filterFixture()
		out := Filter(channels, FieldGroup, keyword)
		if len(out) == 0 {
			t.Fatalf("keyword %q: no matches", keyword)
		}

		out[0].Attrs.Set("group-title", "Changed")
		out[0].Attrs.Set("tvg-logo", "http://logo")
		out[0].Title = "Changed"

		if got := channels[0].Group(); got != "UK | News" {
			t.Errorf("keyword %q: input group-title = %q, want UK | News", keyword, got)
		}
		if got := channels[0].Attr("tvg-logo"); got != "" {
			t.Errorf("keyword %q: input gained tvg-logo %q", keyword, got)
		}
		if channels[0].Title != "BBC News" {
			t.Errorf("keyword %q: input title = %q", keyword, channels[0].Title)
		}
	}
}

func TestChannel_CloneNilAttrs(t *testing.T) {
	ch := Channel{Title: "Bare", URL: "http://x/9"}
	clone := ch.Clone()
	if clone.Attrs != nil || clone.Title != "Bare" || clone.URL != "http://x/9" {
		t.Errorf("Clone() = %+v", clone)
	}
}
