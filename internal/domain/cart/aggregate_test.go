package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/online-library/internal/infrastructure/store/mocks"
)

func newTestCartService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func TestService_AddItem(t *testing.T) {
	service, eventStore := newTestCartService()
	ctx := context.Background()

	err := service.AddItem(ctx, "user-1", "book-1", "Clean Code", 2, decimal.NewFromInt(300))
	require.NoError(t, err)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventItemAdded, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, GetCartID("user-1"), eventStore.AppendCalls[0].AggregateID)

	cart, err := service.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items["book-1"].Quantity)
	assert.True(t, cart.Total().Equal(decimal.NewFromInt(600)))
}

func TestService_AddItem_MergesQuantity(t *testing.T) {
	service, _ := newTestCartService()
	ctx := context.Background()

	require.NoError(t, service.AddItem(ctx, "user-1", "book-1", "Clean Code", 1, decimal.NewFromInt(300)))
	require.NoError(t, service.AddItem(ctx, "user-1", "book-1", "Clean Code", 2, decimal.NewFromInt(300)))

	cart, err := service.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items["book-1"].Quantity)
}

func TestService_AddItem_Validation(t *testing.T) {
	service, eventStore := newTestCartService()
	ctx := context.Background()

	assert.ErrorIs(t, service.AddItem(ctx, "user-1", "", "Title", 1, decimal.NewFromInt(100)), ErrInvalidBook)
	assert.ErrorIs(t, service.AddItem(ctx, "user-1", "book-1", "Title", 0, decimal.NewFromInt(100)), ErrInvalidQuantity)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_RemoveItem(t *testing.T) {
	service, _ := newTestCartService()
	ctx := context.Background()

	require.NoError(t, service.AddItem(ctx, "user-1", "book-1", "Clean Code", 1, decimal.NewFromInt(300)))
	require.NoError(t, service.AddItem(ctx, "user-1", "book-2", "Refactoring", 1, decimal.NewFromInt(450)))
	require.NoError(t, service.RemoveItem(ctx, "user-1", "book-1"))

	cart, err := service.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	_, exists := cart.Items["book-1"]
	assert.False(t, exists)
}

func TestService_Clear(t *testing.T) {
	service, _ := newTestCartService()
	ctx := context.Background()

	require.NoError(t, service.AddItem(ctx, "user-1", "book-1", "Clean Code", 1, decimal.NewFromInt(300)))
	require.NoError(t, service.Clear(ctx, "user-1"))

	cart, err := service.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total().IsZero())
}

func TestService_Load_EmptyCart(t *testing.T) {
	service, _ := newTestCartService()

	cart, err := service.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, GetCartID("nobody"), cart.ID)
}
