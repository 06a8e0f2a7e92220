package probe

import (
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBody converts raw to UTF-8 using the charset declared in
// contentType. An absent or unknown charset is treated as UTF-8, with each
// invalid byte replaced by U+FFFD.
func decodeBody(raw []byte, contentType string) string {
	if name := declaredCharset(contentType); name != "" {
		if enc, _ := charset.Lookup(name); enc != nil {
			if out, _, err := transform.Bytes(enc.NewDecoder(), raw); err == nil {
				return string(out)
			}
		}
	}
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["charset"])
}
