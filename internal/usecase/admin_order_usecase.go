package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	events EventPublisher
	logger *slog.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, events EventPublisher, logger *slog.Logger) *AdminOrderUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminOrderUsecase{tx: tx, events: events, logger: logger}
}

// 空文字は「変更しない」
type AdminUpdateOrderStatusInput struct {
	ShippingStatus string
	PaymentStatus  string
}

type AdminOrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int64         `json:"pages"`
}

// 注文一覧（検索・絞り込み・ページング）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.ShippingStatus != "" && !model.ShippingStatus(f.ShippingStatus).Valid() {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_status")
	}
	if f.PaymentStatus != "" && !model.PaymentStatus(f.PaymentStatus).Valid() {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}
	f.Search = strings.TrimSpace(f.Search)

	var out AdminOrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = AdminOrderListOutput{
			Items: items,
			Total: total,
			Page:  f.Page,
			Limit: f.Limit,
			Pages: (total + int64(f.Limit) - 1) / int64(f.Limit),
		}
		return nil
	})
	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// UpdateStatus は配送・支払いステータスを個別に更新する。
// CANCELLED にすると在庫を戻し、CANCELLED から戻すと在庫を取り直す。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newShipping := model.ShippingStatus(strings.ToUpper(strings.TrimSpace(in.ShippingStatus)))
	newPayment := model.PaymentStatus(strings.ToUpper(strings.TrimSpace(in.PaymentStatus)))
	if newShipping == "" && newPayment == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "shipping_status or payment_status required")
	}
	if newShipping != "" && !newShipping.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_status")
	}
	if newPayment != "" && !newPayment.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}

	var (
		out     OrderOutput
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if newShipping != "" && newShipping != o.ShippingStatus {
			if err := u.changeShipping(ctx, r, actorAdminUserID, &o, items, newShipping); err != nil {
				return err
			}
			changed = true
		}
		if newPayment != "" && newPayment != o.PaymentStatus {
			if err := u.changePayment(ctx, r, actorAdminUserID, &o, newPayment); err != nil {
				return err
			}
			changed = true
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if changed {
		publishOrderEvent(ctx, u.events, u.logger, EventOrderStatusChanged, out)
	}
	return out, nil
}

func (u *AdminOrderUsecase) changeShipping(ctx context.Context, r repo.TxRepos, actorID int64, o *model.Order, items []model.OrderItem, to model.ShippingStatus) error {
	from := o.ShippingStatus

	switch {
	case to == model.ShippingStatusCancelled:
		if err := restoreStock(ctx, r, items); err != nil {
			return err
		}
	case from == model.ShippingStatusCancelled:
		if err := reserveOrderItems(ctx, r, items); err != nil {
			return err
		}
	}

	if err := r.Orders().UpdateShippingStatus(ctx, o.ID, to); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	o.ShippingStatus = to

	n := shippingNotification(o.UserID, o.ID, to)
	if err := r.Notifications().Create(ctx, &n); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return writeStatusAudit(ctx, r, actorID, o.ID, model.AuditActionUpdateShippingStatus,
		"shipping_status", string(from), string(to))
}

func (u *AdminOrderUsecase) changePayment(ctx context.Context, r repo.TxRepos, actorID int64, o *model.Order, to model.PaymentStatus) error {
	from := o.PaymentStatus

	if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, to); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	o.PaymentStatus = to

	if to != model.PaymentStatusPending {
		n := paymentNotification(o.UserID, o.ID, to)
		if err := r.Notifications().Create(ctx, &n); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return writeStatusAudit(ctx, r, actorID, o.ID, model.AuditActionUpdatePaymentStatus,
		"payment_status", string(from), string(to))
}

func writeStatusAudit(ctx context.Context, r repo.TxRepos, actorID, orderID int64, action model.AuditAction, field, before, after string) error {
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   `{"` + field + `":"` + before + `"}`,
		AfterJSON:    `{"` + field + `":"` + after + `"}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
