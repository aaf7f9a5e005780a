package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/haat/internal/billing"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/repository/repotest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (r *recordingEvents) Publish(ctx context.Context, event domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// orderFixture is a catalog with one product, one variant and one weight
// option priced at 100 rupees, plus a customer and an admin.
type orderFixture struct {
	store    *repotest.Store
	provider *billing.MockProvider
	events   *recordingEvents
	svc      OrderService

	customer *domain.User
	admin    *domain.User

	productID uuid.UUID
	variantID uuid.UUID
	weightID  uuid.UUID
}

func newOrderFixture(t *testing.T, stock int32) *orderFixture {
	t.Helper()

	store := repotest.New()
	provider := billing.NewMockProvider()
	events := &recordingEvents{}

	productID := store.AddProduct(repository.Product{Name: "Kashmiri Chilli", Category: "spices", District: "Srinagar"})
	variantID := store.AddVariant(productID, "Whole")
	weightID := store.AddWeight(variantID, repotest.SeedWeight{Value: "250", Unit: "g", PricePaise: 10000, Quantity: stock})

	customer := store.AddUser(repository.User{Name: "Asha Rao", Phone: repository.Text("9876543210")})
	admin := store.AddUser(repository.User{Name: "Admin", IsAdmin: true})

	return &orderFixture{
		store:     store,
		provider:  provider,
		events:    events,
		svc:       NewOrderService(store, provider, events, nil, discardLogger()),
		customer:  &domain.User{ID: repository.FromUUID(customer.ID), UID: customer.Uid, Name: "Asha Rao"},
		admin:     &domain.User{ID: repository.FromUUID(admin.ID), UID: admin.Uid, Name: "Admin", IsAdmin: true},
		productID: productID,
		variantID: variantID,
		weightID:  weightID,
	}
}

// request builds a valid checkout for quantity units at 100 rupees each plus
// a 20 rupee delivery fee.
func (f *orderFixture) request(quantity int, method string) CreateOrderRequest {
	total := decimal.NewFromInt(int64(100*quantity + 20))
	return CreateOrderRequest{
		Name:     "Asha Rao",
		Phone:    "9876543210",
		Email:    "asha@example.com",
		Address:  "12 MG Road",
		District: "Pune",
		State:    "Maharashtra",
		Zip:      "411001",
		Items: []CreateOrderItem{{
			ProductID: f.productID,
			VariantID: f.variantID,
			WeightID:  f.weightID,
			Name:      "Kashmiri Chilli",
			Price:     decimal.NewFromInt(100),
			Quantity:  quantity,
			Weight:    "250g",
		}},
		DeliveryFee:   decimal.NewFromInt(20),
		TotalAmount:   total,
		PaymentMethod: method,
	}
}

// placeOnline places a gateway order for quantity units and returns it.
func (f *orderFixture) placeOnline(t *testing.T, quantity int) *domain.Order {
	t.Helper()
	result, err := f.svc.CreateOrder(context.Background(), f.customer, f.request(quantity, "razorpay"))
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	return result.Order
}

// putPending stores an online order awaiting payment, created age ago.
func (f *orderFixture) putPending(gatewayOrderID string, quantity int32, age time.Duration) repository.Order {
	return f.store.PutOrder(repository.Order{
		UserID:         repository.UUID(f.customer.ID),
		Name:           "Asha Rao",
		Phone:          "9876543210",
		Email:          repository.Text("asha@example.com"),
		SubtotalPaise:  int64(quantity) * 10000,
		TotalPaise:     int64(quantity)*10000 + 2000,
		PaymentMethod:  "razorpay",
		PaymentStatus:  "pending",
		Status:         "pending",
		GatewayOrderID: repository.Text(gatewayOrderID),
		CreatedAt:      repository.Timestamptz(time.Now().Add(-age)),
	}, repository.OrderItem{
		ProductID:  repository.UUID(f.productID),
		VariantID:  repository.UUID(f.variantID),
		WeightID:   repository.UUID(f.weightID),
		Name:       "Kashmiri Chilli",
		PricePaise: 10000,
		Quantity:   quantity,
		Weight:     "250g",
	})
}

// putPaid stores a settled online order with a captured payment.
func (f *orderFixture) putPaid(totalPaise int64) repository.Order {
	return f.store.PutOrder(repository.Order{
		UserID:           repository.UUID(f.customer.ID),
		Name:             "Asha Rao",
		Phone:            "9876543210",
		Email:            repository.Text("asha@example.com"),
		SubtotalPaise:    totalPaise - 2000,
		DeliveryFeePaise: 2000,
		TotalPaise:       totalPaise,
		PaymentMethod:    "razorpay",
		PaymentStatus:    "paid",
		Status:           "processing",
		GatewayOrderID:   repository.Text("order_paid"),
		PaymentID:        repository.Text("pay_1"),
		InventoryUpdated: true,
	})
}

func (f *orderFixture) jobTypes() []string {
	jobs := f.store.Jobs()
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.JobType
	}
	return out
}
