package service

import (
	"errors"

	"github.com/noah-isme/gema-integrity-api/internal/models"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrForbidden indicates the caller may not see the requested resource.
	ErrForbidden = errors.New("access to this resource is not allowed")
)

// Requester identifies the authenticated caller of a use case.
type Requester struct {
	ID   string
	Role string
}

// IsTeacher reports whether the caller has the teacher role.
func (r Requester) IsTeacher() bool {
	return r.Role == models.RoleTeacher
}

// Owns reports whether the caller is the user identified by ownerID.
func (r Requester) Owns(ownerID string) bool {
	return r.ID != "" && r.ID == ownerID
}
