package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/online-library/internal/infrastructure/store/mocks"
)

func newTestInventoryService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func TestService_AddCopies(t *testing.T) {
	service, eventStore := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.AddCopies(ctx, "book-1", 10))

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventCopiesAdded, eventStore.AppendCalls[0].EventType)

	inv, err := service.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 10, inv.TotalCopies)
}

func TestService_AddCopies_InvalidQuantity(t *testing.T) {
	service, _ := newTestInventoryService()

	assert.ErrorIs(t, service.AddCopies(context.Background(), "book-1", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, service.AddCopies(context.Background(), "book-1", -5), ErrInvalidQuantity)
}

func TestService_Deduct(t *testing.T) {
	service, _ := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.AddCopies(ctx, "book-1", 5))
	require.NoError(t, service.Deduct(ctx, "book-1", "order-1", 3))

	inv, err := service.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.TotalCopies)
}

func TestService_Deduct_InsufficientCopies(t *testing.T) {
	service, _ := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.AddCopies(ctx, "book-1", 2))

	err := service.Deduct(ctx, "book-1", "order-1", 3)
	assert.ErrorIs(t, err, ErrInsufficientCopies)

	// Stock unchanged after the rejected deduct
	inv, err := service.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.TotalCopies)
}

func TestService_Deduct_UnknownBook(t *testing.T) {
	service, _ := newTestInventoryService()

	err := service.Deduct(context.Background(), "ghost-book", "order-1", 1)
	assert.ErrorIs(t, err, ErrInsufficientCopies)
}

func TestService_Restock(t *testing.T) {
	service, _ := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.AddCopies(ctx, "book-1", 5))
	require.NoError(t, service.Deduct(ctx, "book-1", "order-1", 5))
	require.NoError(t, service.Restock(ctx, "book-1", "order-1", 2))

	inv, err := service.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.TotalCopies)
}

func TestInventory_Replay(t *testing.T) {
	service, _ := newTestInventoryService()
	ctx := context.Background()

	require.NoError(t, service.AddCopies(ctx, "book-1", 10))
	require.NoError(t, service.Deduct(ctx, "book-1", "order-1", 4))
	require.NoError(t, service.Restock(ctx, "book-1", "order-1", 1))

	inv, err := service.Load(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 7, inv.TotalCopies)
	assert.Equal(t, 3, inv.Version)
}
