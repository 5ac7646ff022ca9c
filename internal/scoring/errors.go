package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned for an assessment type that is not registered.
var ErrUnknownType = errors.New("unknown assessment type")

// InvalidAnswer describes one rejected answer.
type InvalidAnswer struct {
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// ValidationError lists every missing key and every rejected value of a
// submission.
type ValidationError struct {
	TypeID  string          `json:"assessment_type"`
	Missing []string        `json:"missing,omitempty"`
	Invalid []InvalidAnswer `json:"invalid,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		descs := make([]string, 0, len(e.Invalid))
		for _, inv := range e.Invalid {
			if inv.Value != "" {
				descs = append(descs, fmt.Sprintf("%s (%q: %s)", inv.Key, inv.Value, inv.Reason))
			} else {
				descs = append(descs, fmt.Sprintf("%s (%s)", inv.Key, inv.Reason))
			}
		}
		parts = append(parts, "invalid values: "+strings.Join(descs, ", "))
	}
	return fmt.Sprintf("invalid %s answers: %s", e.TypeID, strings.Join(parts, "; "))
}

// ConfigurationError is a load-time defect in an assessment type definition.
type ConfigurationError struct {
	TypeID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.TypeID == "" {
		return "assessment configuration: " + e.Reason
	}
	return fmt.Sprintf("assessment configuration %q: %s", e.TypeID, e.Reason)
}

func configErrorf(typeID, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{TypeID: typeID, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
