package pagination

import (
	"net/http"
	"strconv"

	"github.com/utafrali/ContactsGo/pkg/validator"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds offset pagination parameters extracted from query strings.
type Params struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// DefaultParams returns the defaults applied when a request omits paging.
func DefaultParams() Params {
	return Params{Skip: 0, Limit: DefaultLimit}
}

// FromRequest extracts skip/limit from an HTTP request. Missing values fall
// back to defaults; malformed or out-of-range values yield a validation error.
func FromRequest(r *http.Request) (Params, error) {
	p := DefaultParams()
	q := r.URL.Query()
	valErr := &validator.ValidationError{}

	if raw := q.Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			valErr.Add("skip", "must be a non-negative integer")
		} else {
			p.Skip = v
		}
	}

	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > MaxLimit {
			valErr.Add("limit", "must be an integer between 1 and "+strconv.Itoa(MaxLimit))
		} else {
			p.Limit = v
		}
	}

	if len(valErr.Errors) > 0 {
		return DefaultParams(), valErr
	}
	return p, nil
}
