// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrDuplicateAssignment is returned by the repository when the
// (campaign, lead, message) unique constraint rejects an insert.
var ErrDuplicateAssignment = errors.New("message assignment already exists")

// ErrCampaignNotFound is returned when a campaign id has no row.
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// InvalidReferenceError reports a campaign, lead or message id that does not
// exist or is outside the campaign's scope.
type InvalidReferenceError struct {
	Field  string
	ID     int
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.ID, e.Reason)
}

func NewInvalidReference(field string, id int, reason string) error {
	return &InvalidReferenceError{Field: field, ID: id, Reason: reason}
}

// EmptySelectionError is returned when neither a lead nor a filter was given.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string {
	return "select a lead or at least one filter (lead type or lead source)"
}

func NewEmptySelection() error {
	return &EmptySelectionError{}
}

// InvalidFilterError reports an unknown lead type or lead source value.
type InvalidFilterError struct {
	Field string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

func NewInvalidFilter(field, value string) error {
	return &InvalidFilterError{Field: field, Value: value}
}

// IsValidation reports whether err should be shown to the admin user as a
// form error, and which form field it belongs to.
func IsValidation(err error) (string, bool) {
	var ref *InvalidReferenceError
	if errors.As(err, &ref) {
		return ref.Field, true
	}
	var filter *InvalidFilterError
	if errors.As(err, &filter) {
		return filter.Field, true
	}
	var empty *EmptySelectionError
	if errors.As(err, &empty) {
		return "lead_id", true
	}
	return "", false
}
