package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a payload before it is handed to the store. Any failure
// wraps ErrInvalidAnalysisPayload and lists the offending fields.
func Validate(p *Payload) error {
	if p == nil {
		return fmt.Errorf("%w: empty payload", ErrInvalidAnalysisPayload)
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidAnalysisPayload, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidAnalysisPayload, err)
	}
	return nil
}
