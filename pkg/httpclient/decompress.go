package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decompressBody wraps resp.Body according to Content-Encoding. decoded is
// false when the body is returned unchanged.
func decompressBody(resp *http.Response) (body io.ReadCloser, decoded bool, err error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(HeaderContentEncoding)))

	switch encoding {
	case "", "identity":
		return resp.Body, false, nil

	case EncodingGzip:
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("creating gzip reader: %w", err)
		}
		return &decompressReader{reader: reader, closer: resp.Body}, true, nil

	case EncodingDeflate:
		return &decompressReader{reader: flate.NewReader(resp.Body), closer: resp.Body}, true, nil

	case EncodingBrotli:
		return &decompressReader{reader: brotli.NewReader(resp.Body), closer: resp.Body}, true, nil

	default:
		return resp.Body, false, nil
	}
}

// decompressReader wraps a decompression reader with the original body closer.
type decompressReader struct {
	reader io.Reader
	closer io.Closer
}

func (d *decompressReader) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressReader) Close() error {
	if closer, ok := d.reader.(io.Closer); ok {
		closer.Close()
	}
	return d.closer.Close()
}
