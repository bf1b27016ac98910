package transport

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is the closed set of HTTP methods a request may use.
type Method int

const (
	// MethodGet is the zero value so an unset method means GET.
	MethodGet Method = iota
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
)

var methodVerbs = [...]string{
	MethodGet:    http.MethodGet,
	MethodPost:   http.MethodPost,
	MethodPut:    http.MethodPut,
	MethodDelete: http.MethodDelete,
	MethodPatch:  http.MethodPatch,
}

// Valid reports whether m is one of the defined methods.
func (m Method) Valid() bool {
	return m >= 0 && int(m) < len(methodVerbs)
}

// String returns the HTTP verb for m.
func (m Method) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodVerbs[m]
}

// ParseMethod maps an HTTP verb, in any case, to a Method.
func ParseMethod(s string) (Method, error) {
	verb := strings.ToUpper(strings.TrimSpace(s))
	for m, v := range methodVerbs {
		if v == verb {
			return Method(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMethod, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
