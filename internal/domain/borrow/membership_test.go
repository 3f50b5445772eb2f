package borrow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/online-library/internal/infrastructure/store/mocks"
)

func newTestMembershipService() (*MembershipService, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewMembershipService(eventStore)
	return service, eventStore
}

func TestMembershipService_Apply(t *testing.T) {
	service, eventStore := newTestMembershipService()

	m, err := service.Apply(context.Background(), "user-1")

	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "user-1", m.UserID)
	assert.Equal(t, MembershipPending, m.Status)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventMembershipApplied, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, MembershipAggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestMembershipService_Approve(t *testing.T) {
	service, _ := newTestMembershipService()
	ctx := context.Background()

	m, err := service.Apply(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, service.Approve(ctx, m.ID))

	loaded, err := service.Load(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, MembershipApproved, loaded.Status)
	assert.NotNil(t, loaded.ApprovedAt)

	// A decided application cannot be re-reviewed
	assert.ErrorIs(t, service.Approve(ctx, m.ID), ErrMembershipDecided)
	assert.ErrorIs(t, service.Reject(ctx, m.ID), ErrMembershipDecided)
}

func TestMembershipService_Reject(t *testing.T) {
	service, _ := newTestMembershipService()
	ctx := context.Background()

	m, err := service.Apply(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, service.Reject(ctx, m.ID))

	loaded, err := service.Load(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, MembershipRejected, loaded.Status)
}

func TestMembershipService_NotFound(t *testing.T) {
	service, _ := newTestMembershipService()

	assert.ErrorIs(t, service.Approve(context.Background(), "missing"), ErrMembershipNotFound)
}
