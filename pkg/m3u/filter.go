package m3u

import "strings"

// Filter fields with special meaning. Any other field names an attribute.
const (
	FieldTitle = "title"
	FieldGroup = "group"
)

// Filter returns the channels whose field contains keyword, ignoring case.
// FieldTitle matches the title, FieldGroup the group-title attribute, and
// any other field the attribute of that name. A blank keyword matches every
// channel. The result holds clones, so it shares no attribute maps with
// channels.
func Filter(channels []Channel, field, keyword string) []Channel {
	kw := strings.ToLower(strings.TrimSpace(keyword))

	out := make([]Channel, 0, len(channels))
	for i := range channels {
		if kw == "" || strings.Contains(strings.ToLower(fieldValue(&channels[i], field)), kw) {
			out = append(out, channels[i].Clone())
		}
	}
	return out
}

func fieldValue(ch *Channel, field string) string {
	switch field {
	case FieldTitle:
		return ch.Title
	case FieldGroup:
		return ch.Group()
	default:
		return ch.Attr(field)
	}
}
