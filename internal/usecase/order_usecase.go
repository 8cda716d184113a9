package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ecshop/internal/domain/model"
	"ecshop/internal/metrics"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

type OrderUsecase struct {
	tx       repo.TransactionManager
	shipping ShippingQuoter
	events   EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// shipping / events / m は nil 可
func NewOrderUsecase(
	tx repo.TransactionManager,
	shipping ShippingQuoter,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *OrderUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderUsecase{tx: tx, shipping: shipping, events: events, metrics: m, logger: logger}
}

type CheckoutInput struct {
	// 0 なら配送先なし（送料0）
	AddressID int64
}

type OrderItemOutput struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Quantity        int64           `json:"quantity"`
	SelectedSize    string          `json:"selected_size,omitempty"`
	SelectedColor   string          `json:"selected_color,omitempty"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID                   int64             `json:"id"`
	UserID               int64             `json:"user_id"`
	AddressID            *int64            `json:"address_id"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	ShippingFee          decimal.Decimal   `json:"shipping_fee"`
	TotalAmount          decimal.Decimal   `json:"total_amount"`
	PaymentStatus        string            `json:"payment_status"`
	ShippingStatus       string            `json:"shipping_status"`
	ExpectedDeliveryDate string            `json:"expected_delivery_date,omitempty"`
	DeliveryDeadline     *string           `json:"delivery_deadline,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	Items                []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// Checkout はカートの中身を1件の注文に変換する。
// 途中で失敗したら在庫・注文・明細・カートは全部ロールバックされる。
// 配送見積もりの失敗だけは既定値で続行する。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID < 0 {
		return OrderOutput{}, ErrInvalidAddress
	}

	out, err := u.checkout(ctx, userID, in)
	u.metrics.ObserveCheckout(checkoutResult(err))
	if err != nil {
		return OrderOutput{}, err
	}

	u.publish(ctx, EventOrderPlaced, out)
	return out, nil
}

func (u *OrderUsecase) checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	// 1-2. カート・住所の確認と重量の計算（見積もりはTxの外で呼ぶ）
	var (
		addressID *int64
		shipReq   ShippingQuoteRequest
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}
		if in.AddressID == 0 {
			return nil
		}

		addr, err := r.Addresses().FindByID(ctx, in.AddressID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidAddress
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if addr.UserID != userID || !addr.HasShippingCodes() {
			return ErrInvalidAddress
		}
		addressID = &addr.ID

		var weight int64
		for _, ci := range items {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				// 在庫確認のところで弾く
				continue
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			weight += p.ShippingWeight() * ci.Quantity
		}
		shipReq = ShippingQuoteRequest{DistrictID: addr.DistrictID, WardCode: addr.WardCode, WeightGrams: weight}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	quote := ShippingQuote{Fee: decimal.Zero}
	if addressID != nil {
		quote = u.quote(ctx, shipReq)
	}

	// 3-6. 注文作成から合計確定までを1つのTxで
	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return ErrEmptyCart
		}

		order := model.Order{
			UserID:               userID,
			AddressID:            addressID,
			Subtotal:             decimal.Zero,
			ShippingFee:          quote.Fee,
			TotalAmount:          decimal.Zero,
			PaymentStatus:        model.PaymentStatusPending,
			ShippingStatus:       model.ShippingStatusPending,
			ExpectedDeliveryDate: quote.ExpectedDelivery,
			DeliveryDeadline:     quote.Deadline,
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		subtotal := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		for _, ci := range cartItems {
			p, err := reserveStock(ctx, r, ci.ProductID, ci.Quantity)
			if err != nil {
				return err
			}

			item := model.OrderItem{
				OrderID:             order.ID,
				ProductID:           p.ID,
				ProductNameSnapshot: p.Name,
				PriceAtPurchase:     p.Price,
				Quantity:            ci.Quantity,
				SelectedSize:        ci.SelectedSize,
				SelectedColor:       ci.SelectedColor,
			}
			if err := r.OrderItems().Create(ctx, &item); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			subtotal = subtotal.Add(item.LineTotal())
			orderItems = append(orderItems, item)

			if err := r.CartItems().DeleteByID(ctx, ci.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		total := subtotal.Add(quote.Fee)
		if err := r.Orders().UpdateTotals(ctx, order.ID, subtotal, total); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		order.Subtotal = subtotal
		order.TotalAmount = total

		out = toOrderOutput(order, orderItems)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) quote(ctx context.Context, req ShippingQuoteRequest) ShippingQuote {
	if u.shipping == nil {
		return DefaultShippingQuote()
	}
	q, err := u.shipping.Quote(ctx, req)
	if err != nil {
		u.logger.WarnContext(ctx, "shipping quote failed, using default",
			"district_id", req.DistrictID, "ward_code", req.WardCode, "error", err)
		u.metrics.ObserveShippingFallback()
		return DefaultShippingQuote()
	}
	return q
}

func checkoutResult(err error) string {
	var stockErr *InsufficientStockError
	switch {
	case err == nil:
		return metrics.CheckoutSuccess
	case errors.Is(err, ErrEmptyCart):
		return metrics.CheckoutEmptyCart
	case errors.Is(err, ErrInvalidAddress):
		return metrics.CheckoutInvalidAddress
	case errors.As(err, &stockErr):
		return metrics.CheckoutInsufficientStock
	default:
		return metrics.CheckoutError
	}
}

// ListMine は自分の注文を新しい順に返す
func (u *OrderUsecase) ListMine(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMine(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Cancel は配送前（PENDING）の自分の注文だけキャンセルできる。在庫は戻す。
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if o.ShippingStatus != model.ShippingStatusPending {
			return &InvalidStateTransitionError{
				From: string(o.ShippingStatus),
				To:   string(model.ShippingStatusCancelled),
			}
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := restoreStock(ctx, r, items); err != nil {
			return err
		}
		if err := r.Orders().UpdateShippingStatus(ctx, orderID, model.ShippingStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		o.ShippingStatus = model.ShippingStatusCancelled

		n := shippingNotification(o.UserID, o.ID, model.ShippingStatusCancelled)
		if err := r.Notifications().Create(ctx, &n); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.publish(ctx, EventOrderCancelled, out)
	return out, nil
}

// commit 後に呼ぶ。失敗はログだけ
func (u *OrderUsecase) publish(ctx context.Context, eventType string, o OrderOutput) {
	publishOrderEvent(ctx, u.events, u.logger, eventType, o)
}

func publishOrderEvent(ctx context.Context, events EventPublisher, logger *slog.Logger, eventType string, o OrderOutput) {
	if events == nil {
		return
	}
	ev := OrderEvent{
		Type:           eventType,
		OrderID:        o.ID,
		UserID:         o.UserID,
		TotalAmount:    o.TotalAmount,
		ShippingStatus: o.ShippingStatus,
		PaymentStatus:  o.PaymentStatus,
	}
	if err := events.Publish(ctx, eventType, ev); err != nil {
		logger.ErrorContext(ctx, "publish order event failed",
			"event", eventType, "order_id", o.ID, "error", err)
	}
}

func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:              it.ID,
			ProductID:       it.ProductID,
			ProductName:     it.ProductNameSnapshot,
			PriceAtPurchase: it.PriceAtPurchase,
			Quantity:        it.Quantity,
			SelectedSize:    it.SelectedSize,
			SelectedColor:   it.SelectedColor,
			LineTotal:       it.LineTotal(),
		})
	}

	return OrderOutput{
		ID:                   o.ID,
		UserID:               o.UserID,
		AddressID:            o.AddressID,
		Subtotal:             o.Subtotal,
		ShippingFee:          o.ShippingFee,
		TotalAmount:          o.TotalAmount,
		PaymentStatus:        string(o.PaymentStatus),
		ShippingStatus:       string(o.ShippingStatus),
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		DeliveryDeadline:     o.DeliveryDeadline,
		CreatedAt:            o.CreatedAt,
		Items:                outItems,
	}
}

func sprintfLabel(format string, orderID int64) string {
	return fmt.Sprintf(format, fmt.Sprintf("#%d", orderID))
}
