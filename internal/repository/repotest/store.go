// Package repotest provides an in-memory repository.Store for tests.
//
// The fake keeps the same row-level semantics as the SQL queries: conditional
// stock decrements, unique cart and wishlist keys, guarded status updates and
// no-rows results. ExecTx snapshots state and restores it when fn fails, so
// rollback behavior can be asserted. Func fields override individual methods
// to inject failures.
package repotest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dukerupert/haat/internal/repository"
)

type variantRow struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	Sort      int
}

type weightRow struct {
	ID         uuid.UUID
	VariantID  uuid.UUID
	Value      string
	Unit       string
	PricePaise int64
	Quantity   int32
	Sort       int
}

type state struct {
	users      map[uuid.UUID]repository.User
	products   map[uuid.UUID]repository.Product
	variants   map[uuid.UUID]variantRow
	weights    map[uuid.UUID]weightRow
	orders     map[uuid.UUID]repository.Order
	orderItems map[uuid.UUID][]repository.OrderItem
	cart       map[uuid.UUID]repository.CartItem
	wishlist   map[uuid.UUID]repository.WishlistItem
	jobs       map[uuid.UUID]repository.Job
}

func newState() state {
	return state{
		users:      map[uuid.UUID]repository.User{},
		products:   map[uuid.UUID]repository.Product{},
		variants:   map[uuid.UUID]variantRow{},
		weights:    map[uuid.UUID]weightRow{},
		orders:     map[uuid.UUID]repository.Order{},
		orderItems: map[uuid.UUID][]repository.OrderItem{},
		cart:       map[uuid.UUID]repository.CartItem{},
		wishlist:   map[uuid.UUID]repository.WishlistItem{},
		jobs:       map[uuid.UUID]repository.Job{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s state) clone() state {
	items := make(map[uuid.UUID][]repository.OrderItem, len(s.orderItems))
	for k, v := range s.orderItems {
		items[k] = append([]repository.OrderItem(nil), v...)
	}
	return state{
		users:      cloneMap(s.users),
		products:   cloneMap(s.products),
		variants:   cloneMap(s.variants),
		weights:    cloneMap(s.weights),
		orders:     cloneMap(s.orders),
		orderItems: items,
		cart:       cloneMap(s.cart),
		wishlist:   cloneMap(s.wishlist),
		jobs:       cloneMap(s.jobs),
	}
}

// Store is an in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   state
	last time.Time
	seq  int

	// Commits and Rollbacks count finished transactions.
	Commits   int
	Rollbacks int

	// Failure injection. A non-nil Func replaces the in-memory behavior.
	CreateOrderFunc          func(ctx context.Context, arg repository.CreateOrderParams) (repository.Order, error)
	CreateOrderItemFunc      func(ctx context.Context, arg repository.CreateOrderItemParams) (repository.OrderItem, error)
	DecrementWeightStockFunc func(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error)
	EnqueueJobFunc           func(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
	GetOrderFunc             func(ctx context.Context, id pgtype.UUID) (repository.Order, error)
	ListOrdersFunc           func(ctx context.Context, arg repository.ListOrdersParams) ([]repository.Order, error)
	ListProductsByIDsFunc    func(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error)
	MarkOrderPaidFunc        func(ctx context.Context, arg repository.MarkOrderPaidParams) (repository.Order, error)
	SetGatewayOrderIDFunc    func(ctx context.Context, arg repository.SetGatewayOrderIDParams) (repository.Order, error)
	UpsertCartItemFunc       func(ctx context.Context, arg repository.UpsertCartItemParams) (repository.CartItem, error)
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// now returns the wall clock, nudged forward when needed so successive rows
// never share a created_at. Callers hold s.mu.
func (s *Store) now() time.Time {
	t := time.Now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func ts(t time.Time) pgtype.Timestamptz { return pgtype.Timestamptz{Time: t, Valid: true} }

func id(p pgtype.UUID) uuid.UUID { return uuid.UUID(p.Bytes) }

// ExecTx serializes transactions and restores the previous state when fn
// returns an error.
func (s *Store) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.Rollbacks++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

// =============================================================================
// Seeding and inspection
// =============================================================================

// SeedWeight describes a weight option to add to a variant.
type SeedWeight struct {
	Value      string
	Unit       string
	PricePaise int64
	Quantity   int32
}

// AddProduct inserts a product and returns its id.
func (s *Store) AddProduct(p repository.Product) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !p.ID.Valid {
		p.ID = repository.UUID(uuid.New())
	}
	if !p.CreatedAt.Valid {
		p.CreatedAt = ts(s.now())
		p.UpdatedAt = p.CreatedAt
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	s.st.products[id(p.ID)] = p
	return id(p.ID)
}

// AddVariant inserts a variant under productID.
func (s *Store) AddVariant(productID uuid.UUID, name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	v := variantRow{ID: uuid.New(), ProductID: productID, Name: name, Sort: s.seq}
	s.st.variants[v.ID] = v
	return v.ID
}

// AddWeight inserts a weight option under variantID.
func (s *Store) AddWeight(variantID uuid.UUID, w SeedWeight) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	row := weightRow{
		ID:         uuid.New(),
		VariantID:  variantID,
		Value:      w.Value,
		Unit:       w.Unit,
		PricePaise: w.PricePaise,
		Quantity:   w.Quantity,
		Sort:       s.seq,
	}
	s.st.weights[row.ID] = row
	return row.ID
}

// Quantity returns the stock of a weight option, or -1 when it does not exist.
func (s *Store) Quantity(weightID uuid.UUID) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.weights[weightID]
	if !ok {
		return -1
	}
	return w.Quantity
}

// AddUser inserts a user row.
func (s *Store) AddUser(u repository.User) repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !u.ID.Valid {
		u.ID = repository.UUID(uuid.New())
	}
	if u.Uid == "" {
		u.Uid = "uid-" + id(u.ID).String()[:8]
	}
	if u.AuthMethod == "" {
		u.AuthMethod = "firebase"
	}
	if !u.CreatedAt.Valid {
		u.CreatedAt = ts(s.now())
		u.UpdatedAt = u.CreatedAt
	}
	s.st.users[id(u.ID)] = u
	return u
}

// PutOrder stores an order row as-is, for arranging test state.
func (s *Store) PutOrder(o repository.Order, items ...repository.OrderItem) repository.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !o.ID.Valid {
		o.ID = repository.UUID(uuid.New())
	}
	if !o.CreatedAt.Valid {
		o.CreatedAt = ts(s.now())
		o.UpdatedAt = o.CreatedAt
	}
	if o.PaymentDetails == nil {
		o.PaymentDetails = []byte("{}")
	}
	s.st.orders[id(o.ID)] = o
	for i := range items {
		items[i].ID = repository.UUID(uuid.New())
		items[i].OrderID = o.ID
		items[i].Position = int32(i)
	}
	s.st.orderItems[id(o.ID)] = items
	return o
}

// Order returns the stored order row.
func (s *Store) Order(orderID uuid.UUID) (repository.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[orderID]
	return o, ok
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

// Jobs returns every stored job ordered by creation.
func (s *Store) Jobs() []repository.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Job, 0, len(s.st.jobs))
	for _, j := range s.st.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time) })
	return out
}

// Job returns a stored job.
func (s *Store) Job(jobID uuid.UUID) (repository.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.st.jobs[jobID]
	return j, ok
}

// =============================================================================
// Users
// =============================================================================

func (s *Store) GetUserByID(ctx context.Context, userID pgtype.UUID) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id(userID)]
	if !ok {
		return repository.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUserByUID(ctx context.Context, uid string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if u.Uid == uid {
			return u, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

func (s *Store) GetUserByPhone(ctx context.Context, phone pgtype.Text) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.userByPhone(phone); ok {
		return u, nil
	}
	return repository.User{}, pgx.ErrNoRows
}

func (s *Store) userByPhone(phone pgtype.Text) (repository.User, bool) {
	if !phone.Valid {
		return repository.User{}, false
	}
	for _, u := range s.st.users {
		if u.Phone.Valid && u.Phone.String == phone.String {
			return u, true
		}
	}
	return repository.User{}, false
}

func (s *Store) UpsertUser(ctx context.Context, arg repository.UpsertUserParams) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, u := range s.st.users {
		if u.Uid == arg.Uid {
			if u.Name == "" {
				u.Name = arg.Name
			}
			if u.Email == "" {
				u.Email = arg.Email
			}
			u.UpdatedAt = ts(s.now())
			s.st.users[k] = u
			return u, nil
		}
	}
	now := ts(s.now())
	u := repository.User{
		ID:         repository.UUID(uuid.New()),
		Uid:        arg.Uid,
		Name:       arg.Name,
		Email:      arg.Email,
		Phone:      arg.Phone,
		AuthMethod: arg.AuthMethod,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.st.users[id(u.ID)] = u
	return u, nil
}

func (s *Store) SavePhoneOTP(ctx context.Context, arg repository.SavePhoneOTPParams) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := ts(s.now())
	if u, ok := s.userByPhone(arg.Phone); ok {
		u.OtpHash = arg.OtpHash
		u.OtpCreatedAt = now
		u.UpdatedAt = now
		s.st.users[id(u.ID)] = u
		return u, nil
	}
	u := repository.User{
		ID:           repository.UUID(uuid.New()),
		Uid:          arg.Uid,
		Phone:        arg.Phone,
		AuthMethod:   "phone",
		OtpHash:      arg.OtpHash,
		OtpCreatedAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.st.users[id(u.ID)] = u
	return u, nil
}

func (s *Store) ClearPhoneOTP(ctx context.Context, phone pgtype.Text) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.userByPhone(phone); ok {
		u.OtpHash = pgtype.Text{}
		u.OtpCreatedAt = pgtype.Timestamptz{}
		u.IsVerified = true
		s.st.users[id(u.ID)] = u
	}
	return nil
}

// SetOTPCreatedAt backdates a stored OTP, for expiry tests.
func (s *Store) SetOTPCreatedAt(phone string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.userByPhone(pgtype.Text{String: phone, Valid: true}); ok {
		u.OtpCreatedAt = ts(at)
		s.st.users[id(u.ID)] = u
	}
}

// =============================================================================
// Catalog and stock
// =============================================================================

func (s *Store) GetProduct(ctx context.Context, productID pgtype.UUID) (repository.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id(productID)]
	if !ok {
		return repository.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, arg repository.ListProductsParams) ([]repository.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.Product{}
	for _, p := range s.st.products {
		if arg.Category.Valid && p.Category != arg.Category.String {
			continue
		}
		if arg.District.Valid && p.District != arg.District.String {
			continue
		}
		if arg.TrendingOnly && !p.IsTrending {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if arg.TrendingOnly && out[i].TrendingOrder != out[j].TrendingOrder {
			return out[i].TrendingOrder < out[j].TrendingOrder
		}
		return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time)
	})
	return out, nil
}

func (s *Store) ListProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]repository.Product, error) {
	if s.ListProductsByIDsFunc != nil {
		return s.ListProductsByIDsFunc(ctx, ids)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.Product{}
	seen := map[uuid.UUID]bool{}
	for _, pid := range ids {
		if seen[id(pid)] {
			continue
		}
		seen[id(pid)] = true
		if p, ok := s.st.products[id(pid)]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListProductOptions(ctx context.Context, productIDs []pgtype.UUID) ([]repository.ProductOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[uuid.UUID]bool{}
	for _, pid := range productIDs {
		wanted[id(pid)] = true
	}

	variants := []variantRow{}
	for _, v := range s.st.variants {
		if wanted[v.ProductID] {
			variants = append(variants, v)
		}
	}
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].ProductID != variants[j].ProductID {
			return variants[i].ProductID.String() < variants[j].ProductID.String()
		}
		return variants[i].Sort < variants[j].Sort
	})

	out := []repository.ProductOption{}
	for _, v := range variants {
		weights := []weightRow{}
		for _, w := range s.st.weights {
			if w.VariantID == v.ID {
				weights = append(weights, w)
			}
		}
		sort.Slice(weights, func(i, j int) bool { return weights[i].Sort < weights[j].Sort })

		base := repository.ProductOption{
			ProductID:   repository.UUID(v.ProductID),
			VariantID:   repository.UUID(v.ID),
			VariantName: v.Name,
		}
		if len(weights) == 0 {
			out = append(out, base)
			continue
		}
		for _, w := range weights {
			row := base
			row.WeightID = repository.UUID(w.ID)
			row.WeightValue = pgtype.Text{String: w.Value, Valid: true}
			row.WeightUnit = pgtype.Text{String: w.Unit, Valid: true}
			row.PricePaise = pgtype.Int8{Int64: w.PricePaise, Valid: true}
			row.Quantity = pgtype.Int4{Int32: w.Quantity, Valid: true}
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *Store) GetWeightQuantity(ctx context.Context, weightID pgtype.UUID) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.weights[id(weightID)]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return w.Quantity, nil
}

func (s *Store) DecrementWeightStock(ctx context.Context, arg repository.DecrementWeightStockParams) (int64, error) {
	if s.DecrementWeightStockFunc != nil {
		return s.DecrementWeightStockFunc(ctx, arg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.weights[id(arg.ID)]
	if !ok || w.VariantID != id(arg.VariantID) || w.Quantity < arg.Quantity {
		return 0, nil
	}
	w.Quantity -= arg.Quantity
	s.st.weights[w.ID] = w
	return 1, nil
}

func (s *Store) IncrementWeightStock(ctx context.Context, arg repository.IncrementWeightStockParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.st.weights[id(arg.ID)]
	if !ok || w.VariantID != id(arg.VariantID) {
		return 0, nil
	}
	w.Quantity += arg.Quantity
	s.st.weights[w.ID] = w
	return 1, nil
}

// =============================================================================
// Orders
// =============================================================================

func (s *Store) CreateOrder(ctx context.Context, arg repository.CreateOrderParams) (repository.Order, error) {
	if s.CreateOrderFunc != nil {
		return s.CreateOrderFunc(ctx, arg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := ts(s.now())
	details := arg.PaymentDetails
	if details == nil {
		details = []byte("{}")
	}
	o := repository.Order{
		ID:               repository.UUID(uuid.New()),
		UserID:           arg.UserID,
		Name:             arg.Name,
		Phone:            arg.Phone,
		Email:            arg.Email,
		Address:          arg.Address,
		District:         arg.District,
		State:            arg.State,
		Zip:              arg.Zip,
		SubtotalPaise:    arg.SubtotalPaise,
		DeliveryFeePaise: arg.DeliveryFeePaise,
		TotalPaise:       arg.TotalPaise,
		PaymentMethod:    arg.PaymentMethod,
		PaymentStatus:    arg.PaymentStatus,
		PaymentDetails:   details,
		Status:           arg.Status,
		InventoryUpdated: arg.InventoryUpdated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.st.orders[id(o.ID)] = o
	return o, nil
}

func (s *Store) CreateOrderItem(ctx context.Context, arg repository.CreateOrderItemParams) (repository.OrderItem, error) {
	if s.CreateOrderItemFunc != nil {
		return s.CreateOrderItemFunc(ctx, arg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.orders[id(arg.OrderID)]; !ok {
		return repository.OrderItem{}, pgx.ErrNoRows
	}
	item := repository.OrderItem{
		ID:         repository.UUID(uuid.New()),
		OrderID:    arg.OrderID,
		Position:   arg.Position,
		ProductID:  arg.ProductID,
		VariantID:  arg.VariantID,
		WeightID:   arg.WeightID,
		Name:       arg.Name,
		PricePaise: arg.PricePaise,
		Quantity:   arg.Quantity,
		Weight:     arg.Weight,
		Image:      arg.Image,
	}
	s.st.orderItems[id(arg.OrderID)] = append(s.st.orderItems[id(arg.OrderID)], item)
	return item, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderIDs []pgtype.UUID) ([]repository.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(orderIDs))
	seen := map[uuid.UUID]bool{}
	for _, oid := range orderIDs {
		if !seen[id(oid)] {
			seen[id(oid)] = true
			ids = append(ids, id(oid))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := []repository.OrderItem{}
	for _, oid := range ids {
		items := append([]repository.OrderItem(nil), s.st.orderItems[oid]...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
		out = append(out, items...)
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID pgtype.UUID) (repository.Order, error) {
	if s.GetOrderFunc != nil {
		return s.GetOrderFunc(ctx, orderID)
	}
	return s.getOrder(orderID)
}

// GetOrderForUpdate reads the order. Row locking is implied by ExecTx
// serializing transactions.
func (s *Store) GetOrderForUpdate(ctx context.Context, orderID pgtype.UUID) (repository.Order, error) {
	return s.getOrder(orderID)
}

func (s *Store) getOrder(orderID pgtype.UUID) (repository.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id(orderID)]
	if !ok {
		return repository.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (s *Store) GetOrderByGatewayOrderID(ctx context.Context, gatewayOrderID pgtype.Text) (repository.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gatewayOrderID.Valid {
		for _, o := range s.st.orders {
			if o.GatewayOrderID.Valid && o.GatewayOrderID.String == gatewayOrderID.String {
				return o, nil
			}
		}
	}
	return repository.Order{}, pgx.ErrNoRows
}

func orderMatches(o repository.Order, userID pgtype.UUID, status pgtype.Text) bool {
	if userID.Valid && (!o.UserID.Valid || o.UserID.Bytes != userID.Bytes) {
		return false
	}
	if status.Valid && o.Status != status.String {
		return false
	}
	return true
}

func (s *Store) ListOrders(ctx context.Context, arg repository.ListOrdersParams) ([]repository.Order, error) {
	if s.ListOrdersFunc != nil {
		return s.ListOrdersFunc(ctx, arg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []repository.Order{}
	for _, o := range s.st.orders {
		if orderMatches(o, arg.UserID, arg.Status) {
			matched = append(matched, o)
		}
	}
	asc := arg.SortOrder == "asc"
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch arg.SortBy {
		case "total":
			if a.TotalPaise != b.TotalPaise {
				if asc {
					return a.TotalPaise < b.TotalPaise
				}
				return a.TotalPaise > b.TotalPaise
			}
		case "status":
			if a.Status != b.Status {
				if asc {
					return a.Status < b.Status
				}
				return a.Status > b.Status
			}
		}
		if asc {
			return a.CreatedAt.Time.Before(b.CreatedAt.Time)
		}
		return a.CreatedAt.Time.After(b.CreatedAt.Time)
	})

	out := []repository.Order{}
	for i := int(arg.Offset); i < len(matched) && len(out) < int(arg.Limit); i++ {
		out = append(out, matched[i])
	}
	return out, nil
}

func (s *Store) CountOrders(ctx context.Context, arg repository.CountOrdersParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.st.orders {
		if orderMatches(o, arg.UserID, arg.Status) {
			n++
		}
	}
	return n, nil
}

// updateOrder applies fn to a stored order. fn returns false to leave the
// row untouched, which surfaces as pgx.ErrNoRows.
func (s *Store) updateOrder(orderID pgtype.UUID, fn func(o *repository.Order, now pgtype.Timestamptz) bool) (repository.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[id(orderID)]
	if !ok {
		return repository.Order{}, pgx.ErrNoRows
	}
	now := ts(s.now())
	if !fn(&o, now) {
		return repository.Order{}, pgx.ErrNoRows
	}
	o.UpdatedAt = now
	s.st.orders[id(orderID)] = o
	return o, nil
}

func (s *Store) SetGatewayOrderID(ctx context.Context, arg repository.SetGatewayOrderIDParams) (repository.Order, error) {
	if s.SetGatewayOrderIDFunc != nil {
		return s.SetGatewayOrderIDFunc(ctx, arg)
	}
	return s.updateOrder(arg.ID, func(o *repository.Order, _ pgtype.Timestamptz) bool {
		o.GatewayOrderID = arg.GatewayOrderID
		return true
	})
}

func (s *Store) MarkOrderPaid(ctx context.Context, arg repository.MarkOrderPaidParams) (repository.Order, error) {
	if s.MarkOrderPaidFunc != nil {
		return s.MarkOrderPaidFunc(ctx, arg)
	}
	return s.updateOrder(arg.ID, func(o *repository.Order, _ pgtype.Timestamptz) bool {
		o.PaymentStatus = "paid"
		if arg.PaymentID.Valid {
			o.PaymentID = arg.PaymentID
		}
		if arg.Signature.Valid {
			o.Signature = arg.Signature
		}
		o.InventoryUpdated = arg.InventoryUpdated
		if o.Status == "failed" {
			o.Status = "pending"
		}
		return true
	})
}

func (s *Store) MarkOrderPaymentFailed(ctx context.Context, orderID pgtype.UUID) (repository.Order, error) {
	return s.updateOrder(orderID, func(o *repository.Order, _ pgtype.Timestamptz) bool {
		if o.PaymentStatus == "paid" || o.PaymentStatus == "refunded" {
			return false
		}
		if o.Status != "pending" && o.Status != "failed" {
			return false
		}
		o.PaymentStatus = "failed"
		o.Status = "failed"
		return true
	})
}

func (s *Store) UpdateOrderStatus(ctx context.Context, arg repository.UpdateOrderStatusParams) (repository.Order, error) {
	return s.updateOrder(arg.ID, func(o *repository.Order, now pgtype.Timestamptz) bool {
		if o.Status != arg.FromStatus {
			return false
		}
		o.Status = arg.Status
		switch arg.Status {
		case "shipped":
			o.ShippedAt = now
		case "delivered":
			o.DeliveredAt = now
		case "cancelled":
			o.CancelledAt = now
		}
		return true
	})
}

func (s *Store) MarkInventoryRestored(ctx context.Context, orderID pgtype.UUID) error {
	_, err := s.updateOrder(orderID, func(o *repository.Order, _ pgtype.Timestamptz) bool {
		o.InventoryRestored = true
		return true
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (s *Store) RecordRefund(ctx context.Context, arg repository.RecordRefundParams) (repository.Order, error) {
	return s.updateOrder(arg.ID, func(o *repository.Order, _ pgtype.Timestamptz) bool {
		o.RefundID = arg.RefundID
		o.RefundedPaise += arg.AmountPaise
		if o.RefundedPaise >= o.TotalPaise {
			o.PaymentStatus = "refunded"
		}
		return true
	})
}

func (s *Store) ListPendingPaymentOrders(ctx context.Context, arg repository.ListPendingPaymentOrdersParams) ([]repository.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.Order{}
	for _, o := range s.st.orders {
		if o.PaymentStatus != "pending" || !o.GatewayOrderID.Valid || o.Status != "pending" {
			continue
		}
		if !o.CreatedAt.Time.Before(arg.CreatedBefore.Time) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time) })
	if len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}

// =============================================================================
// Cart
// =============================================================================

func (s *Store) ListCartItems(ctx context.Context, userID pgtype.UUID) ([]repository.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.CartItem{}
	for _, c := range s.st.cart {
		if c.UserID.Bytes == userID.Bytes {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.Before(out[j].CreatedAt.Time) })
	return out, nil
}

func (s *Store) UpsertCartItem(ctx context.Context, arg repository.UpsertCartItemParams) (repository.CartItem, error) {
	if s.UpsertCartItemFunc != nil {
		return s.UpsertCartItemFunc(ctx, arg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := ts(s.now())
	for k, c := range s.st.cart {
		if c.UserID.Bytes == arg.UserID.Bytes && c.ProductID.Bytes == arg.ProductID.Bytes && c.Weight == arg.Weight {
			c.Quantity += arg.Quantity
			c.PricePaise = arg.PricePaise
			c.Name = arg.Name
			c.Image = arg.Image
			c.UpdatedAt = now
			s.st.cart[k] = c
			return c, nil
		}
	}
	c := repository.CartItem{
		ID:         repository.UUID(uuid.New()),
		UserID:     arg.UserID,
		ProductID:  arg.ProductID,
		VariantID:  arg.VariantID,
		WeightID:   arg.WeightID,
		Name:       arg.Name,
		PricePaise: arg.PricePaise,
		Weight:     arg.Weight,
		Image:      arg.Image,
		Quantity:   arg.Quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.st.cart[id(c.ID)] = c
	return c, nil
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, arg repository.UpdateCartItemQuantityParams) (repository.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.cart[id(arg.ID)]
	if !ok || c.UserID.Bytes != arg.UserID.Bytes {
		return repository.CartItem{}, pgx.ErrNoRows
	}
	c.Quantity = arg.Quantity
	c.UpdatedAt = ts(s.now())
	s.st.cart[id(arg.ID)] = c
	return c, nil
}

func (s *Store) DeleteCartItem(ctx context.Context, arg repository.DeleteCartItemParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.cart[id(arg.ID)]
	if !ok || c.UserID.Bytes != arg.UserID.Bytes {
		return 0, nil
	}
	delete(s.st.cart, id(arg.ID))
	return 1, nil
}

func (s *Store) ClearCart(ctx context.Context, userID pgtype.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, c := range s.st.cart {
		if c.UserID.Bytes == userID.Bytes {
			delete(s.st.cart, k)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Wishlist
// =============================================================================

func (s *Store) ListWishlistItems(ctx context.Context, userID pgtype.UUID) ([]repository.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.WishlistItem{}
	for _, w := range s.st.wishlist {
		if w.UserID.Bytes == userID.Bytes {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Time.After(out[j].CreatedAt.Time) })
	return out, nil
}

func (s *Store) CreateWishlistItem(ctx context.Context, arg repository.CreateWishlistItemParams) (repository.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.st.wishlist {
		if w.UserID.Bytes == arg.UserID.Bytes && w.ProductID.Bytes == arg.ProductID.Bytes {
			return repository.WishlistItem{}, pgx.ErrNoRows
		}
	}
	w := repository.WishlistItem{
		ID:         repository.UUID(uuid.New()),
		UserID:     arg.UserID,
		ProductID:  arg.ProductID,
		Name:       arg.Name,
		PricePaise: arg.PricePaise,
		Image:      arg.Image,
		CreatedAt:  ts(s.now()),
	}
	s.st.wishlist[id(w.ID)] = w
	return w, nil
}

func (s *Store) DeleteWishlistItem(ctx context.Context, arg repository.DeleteWishlistItemParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, w := range s.st.wishlist {
		if w.UserID.Bytes == arg.UserID.Bytes && w.ProductID.Bytes == arg.ProductID.Bytes {
			delete(s.st.wishlist, k)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Jobs
// =============================================================================

func (s *Store) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	if s.EnqueueJobFunc != nil {
		return s.EnqueueJobFunc(ctx, arg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	scheduled := arg.ScheduledAt
	if !scheduled.Valid {
		scheduled = ts(now)
	}
	j := repository.Job{
		ID:             repository.UUID(uuid.New()),
		JobType:        arg.JobType,
		Queue:          arg.Queue,
		Payload:        arg.Payload,
		Status:         "pending",
		Priority:       arg.Priority,
		MaxRetries:     arg.MaxRetries,
		ScheduledAt:    scheduled,
		TimeoutSeconds: arg.TimeoutSeconds,
		CreatedAt:      ts(now),
	}
	s.st.jobs[id(j.ID)] = j
	return j, nil
}

func (s *Store) ClaimNextJob(ctx context.Context, arg repository.ClaimNextJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var best *repository.Job
	for _, j := range s.st.jobs {
		if j.Status != "pending" || j.ScheduledAt.Time.After(now) {
			continue
		}
		if arg.Queue != "" && j.Queue != arg.Queue {
			continue
		}
		if best == nil || j.Priority > best.Priority ||
			(j.Priority == best.Priority && j.ScheduledAt.Time.Before(best.ScheduledAt.Time)) {
			candidate := j
			best = &candidate
		}
	}
	if best == nil {
		return repository.Job{}, pgx.ErrNoRows
	}
	best.Status = "processing"
	best.WorkerID = arg.WorkerID
	best.StartedAt = ts(now)
	s.st.jobs[id(best.ID)] = *best
	return *best, nil
}

func (s *Store) CompleteJob(ctx context.Context, jobID pgtype.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.st.jobs[id(jobID)]
	if !ok {
		return nil
	}
	j.Status = "completed"
	j.CompletedAt = ts(s.now())
	s.st.jobs[id(jobID)] = j
	return nil
}

func (s *Store) FailJob(ctx context.Context, arg repository.FailJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.st.jobs[id(arg.ID)]
	if !ok {
		return repository.Job{}, pgx.ErrNoRows
	}
	now := s.now()
	j.ErrorMessage = arg.ErrorMessage
	j.WorkerID = pgtype.Text{}
	if j.RetryCount+1 < j.MaxRetries {
		j.Status = "pending"
		j.ScheduledAt = ts(now.Add(time.Duration(30*(1<<j.RetryCount)) * time.Second))
		j.CompletedAt = pgtype.Timestamptz{}
	} else {
		j.Status = "failed"
		j.CompletedAt = ts(now)
	}
	j.RetryCount++
	s.st.jobs[id(arg.ID)] = j
	return j, nil
}

func (s *Store) CountActiveJobsByType(ctx context.Context, jobType string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.st.jobs {
		if j.JobType == jobType && (j.Status == "pending" || j.Status == "processing") {
			n++
		}
	}
	return n, nil
}
