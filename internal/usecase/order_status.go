package usecase

import (
	"context"
	"errors"
	"net/http"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

// reserveStock は商品行をロックして在庫を減らす。Tx内専用。
// 存在しない・非公開・在庫不足はどれも InsufficientStockError。
func reserveStock(ctx context.Context, r repo.TxRepos, productID int64, qty int64) (model.Product, error) {
	p, err := r.Inventory().LockForUpdate(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, &InsufficientStockError{ProductID: productID}
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive || p.Stock < qty {
		return model.Product{}, &InsufficientStockError{ProductID: p.ID, ProductName: p.Name}
	}

	ok, err := r.Inventory().DecreaseStockIfEnough(ctx, productID, qty)
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return model.Product{}, &InsufficientStockError{ProductID: p.ID, ProductName: p.Name}
	}
	p.Stock -= qty
	return p, nil
}

// キャンセル時の在庫戻し
func restoreStock(ctx context.Context, r repo.TxRepos, items []model.OrderItem) error {
	for _, it := range items {
		if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	return nil
}

// キャンセル済みの注文を戻すときの再確保
func reserveOrderItems(ctx context.Context, r repo.TxRepos, items []model.OrderItem) error {
	for _, it := range items {
		if _, err := reserveStock(ctx, r, it.ProductID, it.Quantity); err != nil {
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) && stockErr.ProductName == "" {
				stockErr.ProductName = it.ProductNameSnapshot
			}
			return err
		}
	}
	return nil
}

var shippingMessages = map[model.ShippingStatus][2]string{
	model.ShippingStatusPending:   {"Order is being prepared", "Your order %s is being prepared."},
	model.ShippingStatusShipping:  {"Order shipped", "Your order %s is on its way."},
	model.ShippingStatusDelivered: {"Order delivered", "Your order %s has been delivered."},
	model.ShippingStatusCancelled: {"Order cancelled", "Your order %s has been cancelled."},
}

func shippingNotification(userID, orderID int64, status model.ShippingStatus) model.Notification {
	msg := shippingMessages[status]
	return model.Notification{
		UserID:  userID,
		Title:   msg[0],
		Content: sprintfLabel(msg[1], orderID),
		Type:    model.NotificationTypeOrder,
	}
}

func paymentNotification(userID, orderID int64, status model.PaymentStatus) model.Notification {
	n := model.Notification{UserID: userID, Type: model.NotificationTypePayment}
	switch status {
	case model.PaymentStatusPaid:
		n.Title = "Payment received"
		n.Content = sprintfLabel("We received the payment for order %s.", orderID)
	case model.PaymentStatusRefunded:
		n.Title = "Payment refunded"
		n.Content = sprintfLabel("The payment for order %s has been refunded.", orderID)
	default:
		n.Title = "Payment pending"
		n.Content = sprintfLabel("The payment for order %s is pending.", orderID)
	}
	return n
}
