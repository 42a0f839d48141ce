package service

import (
	"context"

	"github.com/noah-isme/gema-integrity-api/internal/models"
	"github.com/noah-isme/gema-integrity-api/internal/repository"
)

// classAccess scopes assignment data to the people of the assignment's class.
// Teachers manage an assignment when they created it or are enrolled in its
// class; students read it when they are enrolled.
type classAccess struct {
	classes repository.ClassRepository
}

func (a classAccess) canManage(ctx context.Context, assignment models.Assignment, requester Requester) (bool, error) {
	if !requester.IsTeacher() || requester.ID == "" {
		return false, nil
	}
	if assignment.CreatedBy == requester.ID {
		return true, nil
	}
	return a.classes.IsMember(ctx, assignment.ClassID, requester.ID)
}

func (a classAccess) requireManage(ctx context.Context, assignment models.Assignment, requester Requester) error {
	allowed, err := a.canManage(ctx, assignment, requester)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func (a classAccess) requireRead(ctx context.Context, assignment models.Assignment, requester Requester) error {
	if requester.IsTeacher() {
		return a.requireManage(ctx, assignment, requester)
	}
	if requester.ID == "" {
		return ErrForbidden
	}
	member, err := a.classes.IsMember(ctx, assignment.ClassID, requester.ID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}
	return nil
}
