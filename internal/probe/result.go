package probe

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jmylchreest/xtreamctl/pkg/xtream"
)

// Payload classification errors.
var (
	ErrBadJSON = errors.New("response is not valid account JSON")
	ErrNotM3U  = errors.New("response is not an M3U playlist")

	// ErrNoValidResponse is returned when every candidate endpoint failed.
	ErrNoValidResponse = errors.New("no valid response found, see diagnostics")
)

// StatusError reports a response whose status was not 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if text := http.StatusText(e.Code); text != "" {
		return fmt.Sprintf("HTTP status %d %s", e.Code, text)
	}
	return fmt.Sprintf("HTTP status %d", e.Code)
}

// Kind classifies a single attempt.
type Kind string

// Attempt kinds.
const (
	KindOK             Kind = "ok"
	KindTransportError Kind = "transport_error"
	KindHTTPStatus     Kind = "http_status"
	KindPayloadFormat  Kind = "payload_format"
)

// Attempt records what happened at one candidate endpoint.
type Attempt struct {
	Endpoint string
	Client   string
	Kind     Kind
	// Status is the HTTP status, zero for transport errors.
	Status int
	Err    error
	// DebugPath is the diagnostic file written for a failed attempt, if any.
	DebugPath string
}

// AccountResult is the outcome of FetchAccount.
type AccountResult struct {
	OK       bool
	Endpoint string
	Client   string
	Info     *xtream.AuthInfo
	// Raw is the player_api.php body exactly as received.
	Raw      []byte
	Attempts []Attempt
}

// Err returns nil on success and ErrNoValidResponse otherwise.
func (r *AccountResult) Err() error {
	if r.OK {
		return nil
	}
	return ErrNoValidResponse
}

// PlaylistResult is the outcome of FetchPlaylist.
type PlaylistResult struct {
	OK       bool
	Endpoint string
	Client   string
	Text     string
	Attempts []Attempt
}

// Err returns nil on success and ErrNoValidResponse otherwise.
func (r *PlaylistResult) Err() error {
	if r.OK {
		return nil
	}
	return ErrNoValidResponse
}

// ProgressFunc receives the bytes downloaded so far and the expected total,
// which is -1 when the server did not send a Content-Length.
type ProgressFunc func(done, total int64)
