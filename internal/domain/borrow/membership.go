package borrow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/online-library/internal/domain/aggregate"
	"github.com/example/online-library/internal/infrastructure/store"
)

const MembershipAggregateType = "Membership"

// MembershipStatus is the review state of a membership application
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "Pending"
	MembershipApproved MembershipStatus = "Approved"
	MembershipRejected MembershipStatus = "Rejected"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipDecided  = errors.New("membership application is already decided")
	ErrMembershipExists   = errors.New("user already has a membership application")
	ErrNotMember          = errors.New("active membership required")
)

// Membership is one user's library membership application
type Membership struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Status     MembershipStatus `json:"status"`
	AppliedAt  time.Time        `json:"applied_at"`
	ApprovedAt *time.Time       `json:"approved_at,omitempty"`
	Version    int              `json:"version"`
}

func (m *Membership) GetID() string    { return m.ID }
func (m *Membership) GetVersion() int  { return m.Version }
func (m *Membership) SetVersion(v int) { m.Version = v }

// ApplyEvent applies a single event to the membership state (implements aggregate.Aggregate)
func (m *Membership) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventMembershipApplied:
		var data MembershipApplied
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		m.ID = data.MembershipID
		m.UserID = data.UserID
		m.Status = MembershipPending
		m.AppliedAt = data.AppliedAt
	case EventMembershipApproved:
		var data MembershipApproval
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		m.Status = MembershipApproved
		m.ApprovedAt = &data.ApprovedAt
	case EventMembershipRejected:
		m.Status = MembershipRejected
	}
	m.Version = event.Version
	return nil
}

// MembershipService handles membership applications and review
type MembershipService struct {
	eventStore store.EventStoreInterface
}

func NewMembershipService(es store.EventStoreInterface) *MembershipService {
	return &MembershipService{eventStore: es}
}

func (s *MembershipService) loadMembership(ctx context.Context, membershipID string) (*Membership, error) {
	m, found, err := aggregate.LoadAggregate(ctx, s.eventStore, membershipID, func() *Membership {
		return &Membership{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMembershipNotFound
	}
	return m, nil
}

// Load returns the current state of a membership
func (s *MembershipService) Load(ctx context.Context, membershipID string) (*Membership, error) {
	return s.loadMembership(ctx, membershipID)
}

// Apply files a membership application. Duplicate applications per user are
// rejected by the caller against the read models.
func (s *MembershipService) Apply(ctx context.Context, userID string) (*Membership, error) {
	membershipID := uuid.New().String()
	now := time.Now()

	event := MembershipApplied{
		MembershipID: membershipID,
		UserID:       userID,
		AppliedAt:    now,
	}

	_, err := s.eventStore.Append(ctx, membershipID, MembershipAggregateType, EventMembershipApplied, event)
	if err != nil {
		return nil, err
	}

	return &Membership{
		ID:        membershipID,
		UserID:    userID,
		Status:    MembershipPending,
		AppliedAt: now,
	}, nil
}

// Approve grants a pending membership application
func (s *MembershipService) Approve(ctx context.Context, membershipID string) error {
	m, err := s.loadMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Status != MembershipPending {
		return ErrMembershipDecided
	}

	event := MembershipApproval{
		MembershipID: membershipID,
		ApprovedAt:   time.Now(),
	}

	_, err = s.eventStore.Append(ctx, membershipID, MembershipAggregateType, EventMembershipApproved, event)
	return err
}

// Reject declines a pending membership application
func (s *MembershipService) Reject(ctx context.Context, membershipID string) error {
	m, err := s.loadMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Status != MembershipPending {
		return ErrMembershipDecided
	}

	event := MembershipRejection{
		MembershipID: membershipID,
		RejectedAt:   time.Now(),
	}

	_, err = s.eventStore.Append(ctx, membershipID, MembershipAggregateType, EventMembershipRejected, event)
	return err
}
