package client

import (
	"net/http"
	"slices"
	"time"
)

// DefaultSuccessCodes are always accepted.
var DefaultSuccessCodes = []int{http.StatusOK, http.StatusNoContent}

// Classification is the verdict on one completed exchange.
type Classification struct {
	// Accepted reports whether the status is in the accepted set.
	Accepted bool

	// Expiry is when a cached copy of the response stops being valid.
	Expiry time.Time

	// FromHeader reports whether Expiry came from the Expires header.
	FromHeader bool

	// ExpiresErr is set when an Expires header was present but unparsable.
	ExpiresErr error

	// Class is the error class of a response that was not accepted.
	Class ErrorClass
}

// Classify decides acceptance and cache lifetime for a completed exchange.
//
// A status is accepted if it is 200, 204 or listed in extraSuccessCodes. A
// parseable Expires header sets the expiry as-is, even when it is already
// past; otherwise the expiry is now+ttl at second resolution, with a
// negative ttl treated as zero.
func Classify(status int, header http.Header, extraSuccessCodes []int, ttl time.Duration, now time.Time) Classification {
	c := Classification{
		Accepted: slices.Contains(DefaultSuccessCodes, status) || slices.Contains(extraSuccessCodes, status),
	}
	if !c.Accepted {
		c.Class = classifyStatus(status)
	}

	if raw := header.Get("Expires"); raw != "" {
		expires, err := parseExpires(raw)
		if err == nil {
			c.Expiry = time.Unix(expires.Unix(), 0)
			c.FromHeader = true
			return c
		}
		c.ExpiresErr = err
	}

	if ttl < 0 {
		ttl = 0
	}
	c.Expiry = time.Unix(now.Unix()+int64(ttl/time.Second), 0)
	return c
}

// parseExpires accepts the HTTP-date formats plus RFC 1123 with a numeric
// zone, which some servers still send.
func parseExpires(value string) (time.Time, error) {
	t, err := http.ParseTime(value)
	if err == nil {
		return t, nil
	}
	if t, alt := time.Parse(time.RFC1123Z, value); alt == nil {
		return t, nil
	}
	return time.Time{}, err
}
