package usecase_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
	"ecshop/internal/usecase"

	"github.com/shopspring/decimal"
)

// =====================
// in-memory DB（WithinTx は直列化し、エラー時はスナップショットへ戻す）
// =====================

type memDB struct {
	nextID        int64
	users         map[int64]model.User
	products      map[int64]model.Product
	cart          map[int64]model.CartItem
	favorites     map[int64]model.Favorite
	addresses     map[int64]model.Address
	orders        map[int64]model.Order
	orderItems    map[int64]model.OrderItem
	notifications map[int64]model.Notification
	audits        []model.AuditLog
	adjustments   []model.InventoryAdjustment
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[int64]model.User{},
		products:      map[int64]model.Product{},
		cart:          map[int64]model.CartItem{},
		favorites:     map[int64]model.Favorite{},
		addresses:     map[int64]model.Address{},
		orders:        map[int64]model.Order{},
		orderItems:    map[int64]model.OrderItem{},
		notifications: map[int64]model.Notification{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memDB) clone() *memDB {
	return &memDB{
		nextID:        d.nextID,
		users:         cloneMap(d.users),
		products:      cloneMap(d.products),
		cart:          cloneMap(d.cart),
		favorites:     cloneMap(d.favorites),
		addresses:     cloneMap(d.addresses),
		orders:        cloneMap(d.orders),
		orderItems:    cloneMap(d.orderItems),
		notifications: cloneMap(d.notifications),
		audits:        append([]model.AuditLog(nil), d.audits...),
		adjustments:   append([]model.InventoryAdjustment(nil), d.adjustments...),
	}
}

func (d *memDB) id() int64 {
	d.nextID++
	return d.nextID
}

type memStore struct {
	mu sync.Mutex
	db *memDB
}

func newMemStore() *memStore {
	return &memStore{db: newMemDB()}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.db.clone()
	if err := fn(memTxRepos{s: s}); err != nil {
		s.db = snap
		return err
	}
	return nil
}

var _ repo.TransactionManager = (*memStore)(nil)

type memTxRepos struct{ s *memStore }

func (r memTxRepos) Orders() repo.OrderRepository               { return memOrders{r.s} }
func (r memTxRepos) OrderItems() repo.OrderItemRepository       { return memOrderItems{r.s} }
func (r memTxRepos) CartItems() repo.CartItemRepository         { return memCart{r.s} }
func (r memTxRepos) Inventory() repo.InventoryRepository        { return memInventory{r.s} }
func (r memTxRepos) Products() repo.ProductRepository           { return memProducts{r.s} }
func (r memTxRepos) Addresses() repo.AddressRepository          { return memAddresses{r.s} }
func (r memTxRepos) Notifications() repo.NotificationRepository { return memNotifications{r.s} }
func (r memTxRepos) AuditLogs() repo.AuditLogRepository         { return memAudits{r.s} }

// =====================
// seed / 読み出し helper
// =====================

func (s *memStore) addUser(u model.User) model.User {
	if u.ID == 0 {
		u.ID = s.db.id()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.IsActive = true
	s.db.users[u.ID] = u
	return u
}

func (s *memStore) addProduct(name string, price int64, stock int64) model.Product {
	p := model.Product{
		ID:          s.db.id(),
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		WeightGrams: 200,
		IsActive:    true,
	}
	s.db.products[p.ID] = p
	return p
}

func (s *memStore) addCartItem(userID, productID, qty int64) model.CartItem {
	ci := model.CartItem{ID: s.db.id(), UserID: userID, ProductID: productID, Quantity: qty}
	s.db.cart[ci.ID] = ci
	return ci
}

func (s *memStore) addAddress(userID int64, districtID int, wardCode string) model.Address {
	a := model.Address{
		ID:            s.db.id(),
		UserID:        userID,
		RecipientName: "Taro",
		Phone:         "0900000000",
		Line:          "1-2-3",
		DistrictID:    districtID,
		WardCode:      wardCode,
	}
	s.db.addresses[a.ID] = a
	return a
}

func (s *memStore) stock(productID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.products[productID].Stock
}

func (s *memStore) cartCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ci := range s.db.cart {
		if ci.UserID == userID {
			n++
		}
	}
	return n
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.db.orders)
}

func (s *memStore) order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.orders[id]
}

func (s *memStore) notificationsFor(userID int64) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (s *memStore) auditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.db.audits...)
}

// =====================
// Orders
// =====================

type memOrders struct{ s *memStore }

func (r memOrders) Create(ctx context.Context, o *model.Order) error {
	o.ID = r.s.db.id()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.s.db.orders[o.ID] = *o
	return nil
}

func (r memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	o, ok := r.s.db.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r memOrders) FindByIDForUpdate(ctx context.Context, id int64) (model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r memOrders) FindByPaymentIntentID(ctx context.Context, intentID string) (model.Order, error) {
	for _, o := range r.s.db.orders {
		if o.PaymentIntentID == intentID {
			return o, nil
		}
	}
	return model.Order{}, repo.ErrNotFound
}

func (r memOrders) sorted(keep func(model.Order) bool) []model.Order {
	var out []model.Order
	for _, o := range r.s.db.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func page(orders []model.Order, p, limit int) []model.Order {
	start := (p - 1) * limit
	if start >= len(orders) {
		return []model.Order{}
	}
	end := start + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[start:end]
}

func (r memOrders) ListByUserID(ctx context.Context, userID int64, p int, limit int) ([]model.Order, int64, error) {
	all := r.sorted(func(o model.Order) bool { return o.UserID == userID })
	return page(all, p, limit), int64(len(all)), nil
}

func (r memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	all := r.sorted(func(o model.Order) bool {
		if f.ShippingStatus != "" && string(o.ShippingStatus) != f.ShippingStatus {
			return false
		}
		if f.PaymentStatus != "" && string(o.PaymentStatus) != f.PaymentStatus {
			return false
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			return false
		}
		return true
	})
	return page(all, f.Page, f.Limit), int64(len(all)), nil
}

func (r memOrders) update(id int64, fn func(o *model.Order)) error {
	o, ok := r.s.db.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(&o)
	o.UpdatedAt = time.Now()
	r.s.db.orders[id] = o
	return nil
}

func (r memOrders) UpdateTotals(ctx context.Context, id int64, subtotal, total decimal.Decimal) error {
	return r.update(id, func(o *model.Order) { o.Subtotal, o.TotalAmount = subtotal, total })
}

func (r memOrders) UpdateShippingStatus(ctx context.Context, id int64, st model.ShippingStatus) error {
	return r.update(id, func(o *model.Order) { o.ShippingStatus = st })
}

func (r memOrders) UpdatePaymentStatus(ctx context.Context, id int64, st model.PaymentStatus) error {
	return r.update(id, func(o *model.Order) { o.PaymentStatus = st })
}

func (r memOrders) SetPaymentIntentID(ctx context.Context, id int64, intentID string) error {
	return r.update(id, func(o *model.Order) { o.PaymentIntentID = intentID })
}

type memOrderItems struct{ s *memStore }

func (r memOrderItems) Create(ctx context.Context, it *model.OrderItem) error {
	it.ID = r.s.db.id()
	it.CreatedAt = time.Now()
	r.s.db.orderItems[it.ID] = *it
	return nil
}

func (r memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var out []model.OrderItem
	for _, it := range r.s.db.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =====================
// Cart / Products / Inventory
// =====================

type memCart struct{ s *memStore }

func (r memCart) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, ci := range r.s.db.cart {
		if ci.UserID == userID {
			out = append(out, ci)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memCart) FindByID(ctx context.Context, id int64) (model.CartItem, error) {
	ci, ok := r.s.db.cart[id]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return ci, nil
}

func (r memCart) FindVariant(ctx context.Context, userID, productID int64, size, color string) (model.CartItem, error) {
	for _, ci := range r.s.db.cart {
		if ci.UserID == userID && ci.ProductID == productID && ci.SelectedSize == size && ci.SelectedColor == color {
			return ci, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r memCart) AddOrIncrement(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	if existing, err := r.FindVariant(ctx, item.UserID, item.ProductID, item.SelectedSize, item.SelectedColor); err == nil {
		existing.Quantity += item.Quantity
		r.s.db.cart[existing.ID] = existing
		return existing, nil
	}
	item.ID = r.s.db.id()
	r.s.db.cart[item.ID] = item
	return item, nil
}

func (r memCart) UpdateQuantity(ctx context.Context, id int64, qty int64) error {
	ci, ok := r.s.db.cart[id]
	if !ok {
		return repo.ErrNotFound
	}
	ci.Quantity = qty
	r.s.db.cart[id] = ci
	return nil
}

func (r memCart) DeleteByID(ctx context.Context, id int64) error {
	if _, ok := r.s.db.cart[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.db.cart, id)
	return nil
}

type memProducts struct{ s *memStore }

func (r memProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.s.db.products {
		if !p.IsActive {
			continue
		}
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		if q.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *q.CategoryID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memProducts) ListAdmin(ctx context.Context, q repo.AdminProductListQuery) ([]model.Product, int64, error) {
	out := []model.Product{}
	for _, p := range r.s.db.products {
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		if q.IsActive != nil && p.IsActive != *q.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	start := (q.Page - 1) * q.Limit
	if start >= len(out) {
		return []model.Product{}, total, nil
	}
	end := start + q.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.s.db.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = r.s.db.id()
	r.s.db.products[p.ID] = p
	return p, nil
}

func (r memProducts) Update(ctx context.Context, p model.Product) error {
	cur, ok := r.s.db.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = cur.Stock
	r.s.db.products[p.ID] = p
	return nil
}

func (r memProducts) SoftDelete(ctx context.Context, id int64) error {
	if _, ok := r.s.db.products[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.db.products, id)
	return nil
}

func (r memProducts) Count(ctx context.Context) (int64, error) {
	return int64(len(r.s.db.products)), nil
}

type memInventory struct{ s *memStore }

func (r memInventory) LockForUpdate(ctx context.Context, productID int64) (model.Product, error) {
	return memProducts(r).FindByID(ctx, productID)
}

func (r memInventory) SetStock(ctx context.Context, productID int64, newStock int64) error {
	p, ok := r.s.db.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.s.db.products[productID] = p
	return nil
}

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.s.db.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.db.products[productID] = p
	return true, nil
}

func (r memInventory) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.s.db.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.s.db.products[productID] = p
	return nil
}

func (r memInventory) CreateAdjustment(ctx context.Context, a model.InventoryAdjustment) error {
	a.ID = r.s.db.id()
	r.s.db.adjustments = append(r.s.db.adjustments, a)
	return nil
}

// =====================
// Addresses / Notifications / Audit / Users / Favorites
// =====================

type memAddresses struct{ s *memStore }

func (r memAddresses) Create(ctx context.Context, a model.Address) (model.Address, error) {
	a.ID = r.s.db.id()
	r.s.db.addresses[a.ID] = a
	return a, nil
}

func (r memAddresses) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	var out []model.Address
	for _, a := range r.s.db.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAddresses) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	list, _ := r.ListByUserID(ctx, userID)
	return int64(len(list)), nil
}

func (r memAddresses) FindByID(ctx context.Context, id int64) (model.Address, error) {
	a, ok := r.s.db.addresses[id]
	if !ok {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r memAddresses) Update(ctx context.Context, a model.Address) error {
	if _, ok := r.s.db.addresses[a.ID]; !ok {
		return repo.ErrNotFound
	}
	r.s.db.addresses[a.ID] = a
	return nil
}

func (r memAddresses) Delete(ctx context.Context, id int64) error {
	if _, ok := r.s.db.addresses[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.db.addresses, id)
	return nil
}

func (r memAddresses) SetDefault(ctx context.Context, userID, addressID int64) error {
	if _, ok := r.s.db.addresses[addressID]; !ok {
		return repo.ErrNotFound
	}
	for id, a := range r.s.db.addresses {
		if a.UserID == userID {
			a.IsDefault = id == addressID
			r.s.db.addresses[id] = a
		}
	}
	return nil
}

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(ctx context.Context, n *model.Notification) error {
	n.ID = r.s.db.id()
	n.CreatedAt = time.Now()
	r.s.db.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range r.s.db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memNotifications) MarkRead(ctx context.Context, userID, id int64) error {
	n, ok := r.s.db.notifications[id]
	if !ok || n.UserID != userID {
		return repo.ErrNotFound
	}
	n.IsRead = true
	r.s.db.notifications[id] = n
	return nil
}

func (r memNotifications) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	var changed int64
	for id, n := range r.s.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.s.db.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

type memAudits struct{ s *memStore }

func (r memAudits) Create(ctx context.Context, l model.AuditLog) error {
	l.ID = r.s.db.id()
	r.s.db.audits = append(r.s.db.audits, l)
	return nil
}

func (r memAudits) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	for _, l := range r.s.db.audits {
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

var errDuplicateEmail = errors.New("duplicate email")

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *model.User) error {
	for _, existing := range r.s.db.users {
		if existing.Email == u.Email {
			return errDuplicateEmail
		}
	}
	u.ID = r.s.db.id()
	r.s.db.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u, ok := r.s.db.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

func (r memUsers) Update(ctx context.Context, u *model.User) error {
	if _, ok := r.s.db.users[u.ID]; !ok {
		return repo.ErrUserNotFound
	}
	r.s.db.users[u.ID] = *u
	return nil
}

func (r memUsers) IncrementTokenVersion(ctx context.Context, id int64) error {
	u, ok := r.s.db.users[id]
	if !ok {
		return repo.ErrUserNotFound
	}
	u.TokenVersion++
	r.s.db.users[id] = u
	return nil
}

func (r memUsers) Count(ctx context.Context) (int64, error) {
	return int64(len(r.s.db.users)), nil
}

func (r memUsers) List(ctx context.Context, f repo.UserListFilter) ([]model.User, int64, error) {
	out := []model.User{}
	for _, u := range r.s.db.users {
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(u.Email), s) && !strings.Contains(strings.ToLower(u.FullName), s) {
				continue
			}
		}
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

type memFavorites struct{ s *memStore }

func (r memFavorites) ListByUserID(ctx context.Context, userID int64) ([]model.Favorite, error) {
	var out []model.Favorite
	for _, f := range r.s.db.favorites {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memFavorites) Exists(ctx context.Context, userID, productID int64) (bool, error) {
	for _, f := range r.s.db.favorites {
		if f.UserID == userID && f.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (r memFavorites) Add(ctx context.Context, userID, productID int64) error {
	id := r.s.db.id()
	r.s.db.favorites[id] = model.Favorite{ID: id, UserID: userID, ProductID: productID}
	return nil
}

func (r memFavorites) Remove(ctx context.Context, userID, productID int64) error {
	for id, f := range r.s.db.favorites {
		if f.UserID == userID && f.ProductID == productID {
			delete(r.s.db.favorites, id)
		}
	}
	return nil
}

// マイページ集計（管理ダッシュボード側は使わない）
type memDashboard struct {
	repo.DashboardRepository
	s *memStore
}

func (r memDashboard) CountUserOrders(ctx context.Context, userID int64, status model.ShippingStatus) (int64, error) {
	all := memOrders{r.s}.sorted(func(o model.Order) bool { return o.UserID == userID && o.ShippingStatus == status })
	return int64(len(all)), nil
}

func (r memDashboard) RecentUserOrders(ctx context.Context, userID int64, limit int) ([]model.Order, error) {
	all := memOrders{r.s}.sorted(func(o model.Order) bool { return o.UserID == userID })
	all = page(all, 1, limit)
	for i := range all {
		all[i].Items, _ = memOrderItems{r.s}.ListByOrderID(ctx, all[i].ID)
	}
	return all, nil
}

var (
	_ repo.UserRepository     = memUsers{}
	_ repo.FavoriteRepository = memFavorites{}
	_ repo.CartItemRepository = memCart{}
)

// =====================
// 外部サービスの fake
// =====================

type quoterFunc func(ctx context.Context, req usecase.ShippingQuoteRequest) (usecase.ShippingQuote, error)

func (f quoterFunc) Quote(ctx context.Context, req usecase.ShippingQuoteRequest) (usecase.ShippingQuote, error) {
	return f(ctx, req)
}

func fixedQuote(fee int64) quoterFunc {
	return func(ctx context.Context, req usecase.ShippingQuoteRequest) (usecase.ShippingQuote, error) {
		return usecase.ShippingQuote{Fee: decimal.NewFromInt(fee), ExpectedDelivery: "2 days"}, nil
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []usecase.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := data.(usecase.OrderEvent); ok {
		p.events = append(p.events, ev)
	}
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
