package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/online-library/internal/infrastructure/store/mocks"
)

func newTestOrderService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func testItems() []Item {
	return []Item{
		{BookID: "book-1", BookTitle: "The Go Programming Language", Price: decimal.NewFromInt(400), Quantity: 2},
		{BookID: "book-2", BookTitle: "Designing Data-Intensive Applications", Price: decimal.NewFromInt(550), Quantity: 1},
	}
}

func testShipping() ShippingInfo {
	return ShippingInfo{Name: "Reader One", Phone: "01700000000", Address: "12 Library Road"}
}

// placeTestOrder creates an order through the service and returns it
func placeTestOrder(t *testing.T, service *Service) *Order {
	t.Helper()
	order, err := service.Place(context.Background(), "user-1", testItems(), testShipping())
	require.NoError(t, err)
	return order
}

// payTestOrder moves a placed order to paid/Confirmed
func payTestOrder(t *testing.T, service *Service, orderID string) {
	t.Helper()
	require.NoError(t, service.MarkPaymentSucceeded(context.Background(), orderID, "BANK-1", "VISA"))
}

// deliverTestOrder walks a paid order through to Delivered
func deliverTestOrder(t *testing.T, service *Service, orderID string) {
	t.Helper()
	ctx := context.Background()
	for _, status := range []Status{StatusPacked, StatusShipped, StatusDelivered} {
		require.NoError(t, service.UpdateFulfilmentStatus(ctx, orderID, status))
	}
}

// ============================================
// Place Tests
// ============================================

func TestService_Place_Success(t *testing.T) {
	service, eventStore := newTestOrderService()

	order := placeTestOrder(t, service)

	assert.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.TransactionID)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentPending, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1350)), "total should be 2*400 + 550")

	for _, item := range order.Items {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, ItemActive, item.Status)
	}

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventOrderPlaced, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestNewTransactionID_Format(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := NewTransactionID(at)

	assert.Regexp(t, `^ORD20260314092653[0-9a-f]{6}$`, id)
	assert.NotEqual(t, id, NewTransactionID(at), "random suffix should differ per call")
}

func TestService_Place_EmptyOrder(t *testing.T) {
	service, eventStore := newTestOrderService()

	order, err := service.Place(context.Background(), "user-1", nil, testShipping())

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Nil(t, order)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_Place_ZeroQuantity(t *testing.T) {
	service, _ := newTestOrderService()

	items := []Item{{BookID: "book-1", Price: decimal.NewFromInt(100), Quantity: 0}}
	order, err := service.Place(context.Background(), "user-1", items, testShipping())

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Nil(t, order)
}

// ============================================
// Payment Tests
// ============================================

func TestService_MarkPaymentSucceeded(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)

	err := service.MarkPaymentSucceeded(ctx, order.ID, "BANK-123", "VISA")
	require.NoError(t, err)

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentSuccess, loaded.PaymentStatus)
	assert.Equal(t, StatusConfirmed, loaded.Status)
}

func TestService_MarkPaymentSucceeded_AlreadyPaid(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)

	// Gateway retries the success callback
	err := service.MarkPaymentSucceeded(ctx, order.ID, "BANK-123", "VISA")
	assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
}

func TestService_MarkPaymentSucceeded_AfterFailure(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	require.NoError(t, service.MarkPaymentFailed(ctx, order.ID, "insufficient funds"))

	err := service.MarkPaymentSucceeded(ctx, order.ID, "BANK-123", "VISA")
	assert.ErrorIs(t, err, ErrPaymentFinalized)
}

func TestService_MarkPaymentSucceeded_NotFound(t *testing.T) {
	service, _ := newTestOrderService()

	err := service.MarkPaymentSucceeded(context.Background(), "missing", "BANK-1", "VISA")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestService_MarkPaymentFailed_CancelsOrder(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)

	require.NoError(t, service.MarkPaymentFailed(ctx, order.ID, "declined"))

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentFailure, loaded.PaymentStatus)
	assert.Equal(t, StatusCancelled, loaded.Status)
}

func TestService_MarkPaymentCancelled(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)

	require.NoError(t, service.MarkPaymentCancelled(ctx, order.ID))

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentCancelled, loaded.PaymentStatus)
	assert.Equal(t, StatusCancelled, loaded.Status)

	// Finalized payments cannot be cancelled again
	assert.ErrorIs(t, service.MarkPaymentCancelled(ctx, order.ID), ErrPaymentFinalized)
}

// ============================================
// Fulfilment Status Tests
// ============================================

func TestService_UpdateFulfilmentStatus(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)

	require.NoError(t, service.UpdateFulfilmentStatus(ctx, order.ID, StatusPacked))
	require.NoError(t, service.UpdateFulfilmentStatus(ctx, order.ID, StatusShipped))
	require.NoError(t, service.UpdateFulfilmentStatus(ctx, order.ID, StatusDelivered))

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, loaded.Status)
}

func TestService_UpdateFulfilmentStatus_UnknownStatus(t *testing.T) {
	service, _ := newTestOrderService()

	order := placeTestOrder(t, service)

	err := service.UpdateFulfilmentStatus(context.Background(), order.ID, Status("Teleported"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_UpdateFulfilmentStatus_UnpaidOrder(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)

	err := service.UpdateFulfilmentStatus(ctx, order.ID, StatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotPaid)

	// Cancelling an unpaid order is allowed
	require.NoError(t, service.UpdateFulfilmentStatus(ctx, order.ID, StatusCancelled))
}

// ============================================
// Return Workflow Tests
// ============================================

func TestService_RequestReturn(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemReturnRequested, loaded.Items[0].Status)
	assert.Equal(t, "0123456789", loaded.Items[0].RefundAccountNumber)
	assert.Equal(t, "bkash", loaded.Items[0].RefundPaymentMethod)
	// Other items are untouched
	assert.Equal(t, ItemActive, loaded.Items[1].Status)
}

func TestService_RequestReturn_WrongOwner(t *testing.T) {
	service, _ := newTestOrderService()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	err := service.RequestReturn(context.Background(), order.ID, "someone-else", order.Items[0].ID, "0123456789", "bkash")
	assert.ErrorIs(t, err, ErrNotOrderOwner)
}

func TestService_RequestReturn_NotDelivered(t *testing.T) {
	service, _ := newTestOrderService()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)

	err := service.RequestReturn(context.Background(), order.ID, "user-1", order.Items[0].ID, "0123456789", "bkash")
	assert.ErrorIs(t, err, ErrOrderNotDelivered)
}

func TestService_RequestReturn_UnknownItem(t *testing.T) {
	service, _ := newTestOrderService()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	err := service.RequestReturn(context.Background(), order.ID, "user-1", "missing-item", "0123456789", "bkash")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestService_RequestReturn_Twice(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))

	err := service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash")
	assert.ErrorIs(t, err, ErrInvalidItemState)
}

func TestService_CancelReturn(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
	require.NoError(t, service.CancelReturn(ctx, order.ID, "user-1", itemID))

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemActive, loaded.Items[0].Status)

	// Back to Active, so it can be requested again
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
}

func TestService_CancelReturn_AfterApproval(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
	require.NoError(t, service.ApproveReturn(ctx, order.ID, itemID))

	err := service.CancelReturn(ctx, order.ID, "user-1", itemID)
	assert.ErrorIs(t, err, ErrInvalidItemState)
}

func TestService_ApproveReturn_WithoutRequest(t *testing.T) {
	service, _ := newTestOrderService()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	err := service.ApproveReturn(context.Background(), order.ID, order.Items[0].ID)
	assert.ErrorIs(t, err, ErrInvalidItemState)
}

func TestService_MarkReturnReceived(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
	require.NoError(t, service.ApproveReturn(ctx, order.ID, itemID))

	bookID, quantity, err := service.MarkReturnReceived(ctx, order.ID, itemID)
	require.NoError(t, err)
	assert.Equal(t, "book-1", bookID)
	assert.Equal(t, 2, quantity)

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemReceived, loaded.Items[0].Status)
}

func TestService_MarkReturnReceived_BeforeApproval(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))

	_, _, err := service.MarkReturnReceived(ctx, order.ID, itemID)
	assert.ErrorIs(t, err, ErrInvalidItemState)
}

func TestService_ProcessRefund(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
	require.NoError(t, service.ApproveReturn(ctx, order.ID, itemID))
	_, _, err := service.MarkReturnReceived(ctx, order.ID, itemID)
	require.NoError(t, err)

	amount, err := service.ProcessRefund(ctx, order.ID, itemID)
	require.NoError(t, err)

	// Half of 2 * 400
	assert.True(t, amount.Equal(decimal.NewFromInt(400)), "expected 400, got %s", amount)

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemRefunded, loaded.Items[0].Status)
}

// The payout details supplied with the return request must travel
// through to the refund event untouched.
func TestService_ProcessRefund_UsesRequestedPayoutDetails(t *testing.T) {
	service, eventStore := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "017XXXXXXXX", "nagad"))
	require.NoError(t, service.ApproveReturn(ctx, order.ID, itemID))
	_, _, err := service.MarkReturnReceived(ctx, order.ID, itemID)
	require.NoError(t, err)
	_, err = service.ProcessRefund(ctx, order.ID, itemID)
	require.NoError(t, err)

	var refund RefundProcessed
	found := false
	for _, event := range eventStore.GetEvents(order.ID) {
		if event.EventType == EventRefundProcessed {
			require.NoError(t, json.Unmarshal(event.Data, &refund))
			found = true
		}
	}
	require.True(t, found, "no refund event recorded")
	assert.Equal(t, "017XXXXXXXX", refund.AccountNumber)
	assert.Equal(t, "nagad", refund.PaymentMethod)
}

func TestService_ProcessRefund_BeforeReceipt(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
	require.NoError(t, service.ApproveReturn(ctx, order.ID, itemID))

	_, err := service.ProcessRefund(ctx, order.ID, itemID)
	assert.ErrorIs(t, err, ErrInvalidItemState)
}

func TestService_ProcessRefund_Twice(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	itemID := order.Items[0].ID
	require.NoError(t, service.RequestReturn(ctx, order.ID, "user-1", itemID, "0123456789", "bkash"))
	require.NoError(t, service.ApproveReturn(ctx, order.ID, itemID))
	_, _, err := service.MarkReturnReceived(ctx, order.ID, itemID)
	require.NoError(t, err)
	_, err = service.ProcessRefund(ctx, order.ID, itemID)
	require.NoError(t, err)

	_, err = service.ProcessRefund(ctx, order.ID, itemID)
	assert.ErrorIs(t, err, ErrInvalidItemState)
}

// ============================================
// Replay Tests
// ============================================

func TestOrder_ReplayFromEvents(t *testing.T) {
	service, _ := newTestOrderService()
	ctx := context.Background()

	order := placeTestOrder(t, service)
	require.NoError(t, service.AttachGatewaySession(ctx, order.ID, "SESSION-1"))
	payTestOrder(t, service, order.ID)
	deliverTestOrder(t, service, order.ID)

	loaded, err := service.Load(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.ID, loaded.ID)
	assert.Equal(t, "SESSION-1", loaded.SessionKey)
	assert.Equal(t, StatusDelivered, loaded.Status)
	assert.Equal(t, PaymentSuccess, loaded.PaymentStatus)
	assert.True(t, loaded.TotalAmount.Equal(order.TotalAmount))
	assert.Equal(t, 6, loaded.Version)
}
