// Package authz holds the ownership and participancy checks gating every
// lifecycle mutation, so handlers share one decision point per operation
// instead of scattering role-string comparisons.
package authz

import (
	"errors"

	"github.com/google/uuid"

	"github.com/freelancehub/freelancehub-backend/internal/models"
)

var (
	ErrNotTaskOwner       = errors.New("caller does not own this task")
	ErrNotTaskParticipant = errors.New("caller is not a participant of this task")
	ErrNotChatParticipant = errors.New("caller is not a participant of this chat")
	ErrNotBidOwner        = errors.New("caller does not own this bid")
	ErrBidNotPending      = errors.New("only pending bids can be deleted by their freelancer")
	ErrNotAssignmentParty = errors.New("caller is not a party of this assignment")
	ErrNotAuthor          = errors.New("caller is not the author")
)

// CanMutateTask gates task update and delete: owner employer only.
func CanMutateTask(callerID uuid.UUID, task *models.Task) error {
	if task.EmployerID != callerID {
		return ErrNotTaskOwner
	}
	return nil
}

// IsTaskParticipant: the owning employer or the assigned freelancer.
func IsTaskParticipant(callerID uuid.UUID, task *models.Task) error {
	if task.EmployerID == callerID {
		return nil
	}
	if task.FreelancerID != nil && *task.FreelancerID == callerID {
		return nil
	}
	return ErrNotTaskParticipant
}

// CanListBids uses the participant-only variant: task owner or assigned
// freelancer.
func CanListBids(callerID uuid.UUID, task *models.Task) error {
	if err := IsTaskParticipant(callerID, task); err != nil {
		return err
	}
	return nil
}

// CanSetBidStatus: only the owning employer of the bid's task.
func CanSetBidStatus(callerID uuid.UUID, task *models.Task) error {
	if task.EmployerID != callerID {
		return ErrNotTaskOwner
	}
	return nil
}

// CanDeleteBid: the bid's freelancer while pending, or the task owner.
func CanDeleteBid(callerID uuid.UUID, callerRole models.Role, bid *models.Bid, task *models.Task) error {
	switch callerRole {
	case models.RoleFreelancer:
		if bid.FreelancerID != callerID {
			return ErrNotBidOwner
		}
		if bid.Status != models.BidStatusPending {
			return ErrBidNotPending
		}
		return nil
	case models.RoleEmployer:
		if task.EmployerID != callerID {
			return ErrNotTaskOwner
		}
		return nil
	}
	return ErrNotBidOwner
}

// CanActOnAssignment: the assignment's freelancer or employer.
func CanActOnAssignment(callerID uuid.UUID, a *models.Assignment) error {
	if a.FreelancerID == callerID || a.EmployerID == callerID {
		return nil
	}
	return ErrNotAssignmentParty
}

// CanAccessChat: one of the chat's two participants.
func CanAccessChat(callerID uuid.UUID, chat *models.Chat) error {
	if !chat.HasParticipant(callerID) {
		return ErrNotChatParticipant
	}
	return nil
}

// CanEditMessage: original sender only, regardless of chat membership.
func CanEditMessage(callerID uuid.UUID, msg *models.Message) error {
	if msg.SenderID != callerID {
		return ErrNotAuthor
	}
	return nil
}

// CanEditReview: author only.
func CanEditReview(callerID uuid.UUID, review *models.Review) error {
	if review.ReviewerID != callerID {
		return ErrNotAuthor
	}
	return nil
}
