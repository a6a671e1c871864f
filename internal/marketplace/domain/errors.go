package domain

import "errors"

var (
	// ErrNotFound is returned when a deal, candidature, notification or thread does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost a race against another writer.
	ErrConflict = errors.New("conflicting update")
	// ErrForbidden is returned when the actor does not own the resource it tries to mutate.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError is reported to the user as-is; no write is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var (
	ErrDealNotActive        = NewValidationError("deal", "ce deal n'est plus actif")
	ErrDuplicateApplication = NewValidationError("candidature", "vous avez déjà postulé à ce deal")
	ErrOwnDeal              = NewValidationError("candidature", "un commerçant ne peut pas postuler à son propre deal")
	ErrReviewExists         = NewValidationError("review", "un avis a déjà été déposé pour cette collaboration")
	ErrReviewNotAllowed     = NewValidationError("review", "la collaboration n'est pas terminée")
)

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
