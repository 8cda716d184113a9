package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"ecshop/internal/domain/model"
	"ecshop/internal/metrics"
	repo "ecshop/internal/repository"

	"github.com/shopspring/decimal"
)

const PaymentStatusAlreadyPaid = "already_paid"

type PaymentUsecase struct {
	tx       repo.TransactionManager
	users    repo.UserRepository
	gateway  PaymentGateway
	mailer   ReceiptMailer
	events   EventPublisher
	metrics  *metrics.Metrics
	currency string
	logger   *slog.Logger
}

type PaymentDeps struct {
	Tx      repo.TransactionManager
	Users   repo.UserRepository
	Gateway PaymentGateway
	// 以下は nil 可
	Mailer  ReceiptMailer
	Events  EventPublisher
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func NewPaymentUsecase(d PaymentDeps, currency string) *PaymentUsecase {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if currency == "" {
		currency = "vnd"
	}
	return &PaymentUsecase{
		tx:       d.Tx,
		users:    d.Users,
		gateway:  d.Gateway,
		mailer:   d.Mailer,
		events:   d.Events,
		metrics:  d.Metrics,
		currency: strings.ToLower(currency),
		logger:   d.Logger,
	}
}

type PaymentIntentOutput struct {
	OrderID         int64           `json:"order_id"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	ClientSecret    string          `json:"client_secret,omitempty"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

type PaymentStatusOutput struct {
	OrderID         int64           `json:"order_id"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentIntentID string          `json:"payment_intent_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// CreateIntent は注文の支払い用ハンドル（client secret）を発行する。
func (u *PaymentUsecase) CreateIntent(ctx context.Context, userID int64, orderID int64) (PaymentIntentOutput, error) {
	if u.gateway == nil {
		return PaymentIntentOutput{}, NewHTTPError(http.StatusServiceUnavailable, "payment is not configured")
	}

	o, err := u.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	out := PaymentIntentOutput{OrderID: o.ID, Amount: o.TotalAmount, Currency: u.currency}
	switch {
	case o.PaymentStatus == model.PaymentStatusPaid:
		out.Status = PaymentStatusAlreadyPaid
		out.PaymentIntentID = o.PaymentIntentID
		return out, nil
	case o.PaymentStatus == model.PaymentStatusRefunded:
		return PaymentIntentOutput{}, &InvalidStateTransitionError{From: string(o.PaymentStatus), To: string(model.PaymentStatusPaid)}
	case o.ShippingStatus == model.ShippingStatusCancelled:
		return PaymentIntentOutput{}, &InvalidStateTransitionError{From: string(o.ShippingStatus), To: string(model.PaymentStatusPaid)}
	}

	intent, err := u.gateway.CreateIntent(ctx, PaymentIntentRequest{
		OrderID:        o.ID,
		UserID:         o.UserID,
		Amount:         o.TotalAmount,
		Currency:       u.currency,
		IdempotencyKey: fmt.Sprintf("intent-order-%d", o.ID),
	})
	if err != nil {
		u.logger.ErrorContext(ctx, "create payment intent failed", "order_id", o.ID, "error", err)
		return PaymentIntentOutput{}, &ExternalServiceError{Service: "payment", Err: err}
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().SetPaymentIntentID(ctx, o.ID, intent.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	out.PaymentIntentID = intent.ID
	out.ClientSecret = intent.ClientSecret
	out.Status = intent.Status
	return out, nil
}

func (u *PaymentUsecase) GetStatus(ctx context.Context, userID int64, orderID int64) (PaymentStatusOutput, error) {
	o, err := u.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentStatusOutput{}, err
	}
	return PaymentStatusOutput{
		OrderID:         o.ID,
		PaymentStatus:   string(o.PaymentStatus),
		PaymentIntentID: o.PaymentIntentID,
		TotalAmount:     o.TotalAmount,
	}, nil
}

// Refund は支払い済みの注文を返金する。決済側が成功してから REFUNDED にする。
func (u *PaymentUsecase) Refund(ctx context.Context, userID int64, orderID int64) (PaymentStatusOutput, error) {
	if u.gateway == nil {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusServiceUnavailable, "payment is not configured")
	}

	o, err := u.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentStatusOutput{}, err
	}
	if o.PaymentStatus != model.PaymentStatusPaid || o.PaymentIntentID == "" {
		return PaymentStatusOutput{}, &InvalidStateTransitionError{From: string(o.PaymentStatus), To: string(model.PaymentStatusRefunded)}
	}

	if err := u.gateway.Refund(ctx, o.PaymentIntentID); err != nil {
		u.logger.ErrorContext(ctx, "refund failed", "order_id", o.ID, "error", err)
		return PaymentStatusOutput{}, &ExternalServiceError{Service: "payment", Err: err}
	}

	updated, changed, err := u.transition(ctx, o.ID, model.PaymentStatusPaid, model.PaymentStatusRefunded)
	if err != nil {
		return PaymentStatusOutput{}, err
	}
	if changed {
		u.publish(ctx, EventOrderRefunded, updated)
	}

	return PaymentStatusOutput{
		OrderID:         updated.ID,
		PaymentStatus:   string(updated.PaymentStatus),
		PaymentIntentID: updated.PaymentIntentID,
		TotalAmount:     updated.TotalAmount,
	}, nil
}

// HandleWebhook は署名済みの決済イベントを反映する。
// 同じイベントが何度届いても結果は変わらない。
func (u *PaymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if u.gateway == nil {
		return NewHTTPError(http.StatusServiceUnavailable, "payment is not configured")
	}

	ev, err := u.gateway.ParseWebhook(payload, signature)
	if err != nil {
		u.logger.WarnContext(ctx, "invalid webhook", "error", err)
		return NewHTTPError(http.StatusBadRequest, "invalid signature")
	}
	u.metrics.ObservePaymentEvent(string(ev.Type))

	log := u.logger.With("event_id", ev.ID, "event_type", ev.Type, "payment_intent_id", ev.PaymentIntentID)

	switch ev.Type {
	case PaymentEventSucceeded:
		return u.applyWebhook(ctx, log, ev, model.PaymentStatusPending, model.PaymentStatusPaid)
	case PaymentEventRefunded:
		return u.applyWebhook(ctx, log, ev, model.PaymentStatusPaid, model.PaymentStatusRefunded)
	case PaymentEventFailed, PaymentEventCanceled:
		log.InfoContext(ctx, "payment not completed", "order_id", ev.OrderID)
		return nil
	default:
		log.DebugContext(ctx, "webhook event ignored")
		return nil
	}
}

func (u *PaymentUsecase) applyWebhook(ctx context.Context, log *slog.Logger, ev PaymentEvent, from, to model.PaymentStatus) error {
	orderID, err := u.resolveOrderID(ctx, ev)
	if errors.Is(err, repo.ErrNotFound) {
		// 再送されても結果は同じなので 200 で返す
		log.WarnContext(ctx, "webhook for unknown order", "order_id", ev.OrderID)
		return nil
	}
	if err != nil {
		return err
	}

	o, changed, err := u.transition(ctx, orderID, from, to)
	if he, ok := AsHTTPError(err); ok && he.Status == http.StatusNotFound {
		log.WarnContext(ctx, "webhook for unknown order", "order_id", orderID)
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		log.InfoContext(ctx, "webhook already applied", "order_id", orderID, "payment_status", o.PaymentStatus)
		return nil
	}
	log.InfoContext(ctx, "payment status updated", "order_id", orderID, "payment_status", to)

	switch to {
	case model.PaymentStatusPaid:
		u.publish(ctx, EventOrderPaid, o)
		u.sendReceipt(ctx, o)
	case model.PaymentStatusRefunded:
		u.publish(ctx, EventOrderRefunded, o)
	}
	return nil
}

func (u *PaymentUsecase) resolveOrderID(ctx context.Context, ev PaymentEvent) (int64, error) {
	if ev.OrderID > 0 {
		return ev.OrderID, nil
	}
	if ev.PaymentIntentID == "" {
		return 0, repo.ErrNotFound
	}

	var id int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByPaymentIntentID(ctx, ev.PaymentIntentID)
		if err != nil {
			return err
		}
		id = o.ID
		return nil
	})
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return id, err
}

// transition は支払いステータスが from のときだけ to に進める。
// すでに進んでいれば changed=false（冪等）。
func (u *PaymentUsecase) transition(ctx context.Context, orderID int64, from, to model.PaymentStatus) (model.Order, bool, error) {
	var (
		out     model.Order
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		out = o
		if o.PaymentStatus != from {
			return nil
		}

		if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, to); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		n := paymentNotification(o.UserID, o.ID, to)
		if err := r.Notifications().Create(ctx, &n); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.PaymentStatus = to
		changed = true
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, false, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return model.Order{}, false, err
		}
		return model.Order{}, false, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, changed, nil
}

func (u *PaymentUsecase) findOwnedOrder(ctx context.Context, userID, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var o model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		o = found
		return nil
	})
	return o, err
}

func (u *PaymentUsecase) publish(ctx context.Context, eventType string, o model.Order) {
	publishOrderEvent(ctx, u.events, u.logger, eventType, toOrderOutput(o, nil))
}

// 送信失敗は決済の結果に影響させない
func (u *PaymentUsecase) sendReceipt(ctx context.Context, o model.Order) {
	if u.mailer == nil || u.users == nil {
		return
	}
	user, err := u.users.FindByID(ctx, o.UserID)
	if err != nil {
		u.logger.WarnContext(ctx, "receipt: user lookup failed", "order_id", o.ID, "error", err)
		return
	}
	err = u.mailer.SendPaymentReceipt(ctx, user.Email, PaymentReceipt{
		OrderID:     o.ID,
		TotalAmount: o.TotalAmount,
		Currency:    u.currency,
	})
	if err != nil {
		u.logger.WarnContext(ctx, "receipt mail failed", "order_id", o.ID, "error", err)
	}
}
