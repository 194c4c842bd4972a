package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrMalformedBody indicates the request body could not be decoded at all,
// as opposed to decoding cleanly and failing validation.
var ErrMalformedBody = errors.New("malformed request body")

// DecodeValid decodes the JSON request body into v and validates the result
// in one step, since every handler in this API does exactly that. A type
// carrying its own Validate method is trusted over its struct tags.
func DecodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if sv, ok := v.(interface{ Validate() error }); ok {
		return sv.Validate()
	}
	return validate.Struct(v)
}
