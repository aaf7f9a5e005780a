package service

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/repository"
)

// orderFromRow converts a stored order and its items to the domain type.
func orderFromRow(row repository.Order, items []repository.OrderItem) *domain.Order {
	o := &domain.Order{
		ID:     repository.FromUUID(row.ID),
		UserID: repository.FromUUID(row.UserID),
		ShippingAddress: domain.ShippingAddress{
			Name:     row.Name,
			Phone:    row.Phone,
			Email:    row.Email.String,
			Address:  row.Address,
			District: row.District,
			State:    row.State,
			Zip:      row.Zip,
		},
		Items:             make([]domain.OrderItem, 0, len(items)),
		Subtotal:          domain.FromPaise(row.SubtotalPaise),
		DeliveryFee:       domain.FromPaise(row.DeliveryFeePaise),
		Total:             domain.FromPaise(row.TotalPaise),
		PaymentMethod:     domain.PaymentMethod(row.PaymentMethod),
		PaymentStatus:     domain.PaymentStatus(row.PaymentStatus),
		Status:            domain.OrderStatus(row.Status),
		InventoryUpdated:  row.InventoryUpdated,
		InventoryRestored: row.InventoryRestored,
		GatewayOrderID:    row.GatewayOrderID.String,
		PaymentID:         row.PaymentID.String,
		Signature:         row.Signature.String,
		RefundID:          row.RefundID.String,
		RefundedAmount:    domain.FromPaise(row.RefundedPaise),
		ShippedAt:         repository.FromTimestamptz(row.ShippedAt),
		DeliveredAt:       repository.FromTimestamptz(row.DeliveredAt),
		CancelledAt:       repository.FromTimestamptz(row.CancelledAt),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}

	if len(row.PaymentDetails) > 0 {
		var details map[string]string
		if err := json.Unmarshal(row.PaymentDetails, &details); err == nil && len(details) > 0 {
			o.PaymentDetails = details
		}
	}

	for _, item := range items {
		o.Items = append(o.Items, orderItemFromRow(item))
	}
	return o
}

func orderItemFromRow(item repository.OrderItem) domain.OrderItem {
	return domain.OrderItem{
		ProductID: repository.FromUUID(item.ProductID),
		VariantID: repository.FromUUID(item.VariantID),
		WeightID:  repository.FromUUID(item.WeightID),
		Name:      item.Name,
		Price:     domain.FromPaise(item.PricePaise),
		Quantity:  int(item.Quantity),
		Weight:    item.Weight,
		Image:     item.Image,
	}
}

// groupItems splits a ListOrderItems result by order id.
func groupItems(items []repository.OrderItem) map[uuid.UUID][]repository.OrderItem {
	out := make(map[uuid.UUID][]repository.OrderItem)
	for _, item := range items {
		id := repository.FromUUID(item.OrderID)
		out[id] = append(out[id], item)
	}
	return out
}

func cartItemFromRow(row repository.CartItem) *domain.CartItem {
	return &domain.CartItem{
		ID:        repository.FromUUID(row.ID),
		UserID:    repository.FromUUID(row.UserID),
		ProductID: repository.FromUUID(row.ProductID),
		VariantID: repository.FromNullUUID(row.VariantID),
		WeightID:  repository.FromNullUUID(row.WeightID),
		Name:      row.Name,
		Price:     domain.FromPaise(row.PricePaise),
		Weight:    row.Weight,
		Image:     row.Image,
		Quantity:  int(row.Quantity),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func wishlistItemFromRow(row repository.WishlistItem) *domain.WishlistItem {
	return &domain.WishlistItem{
		ID:        repository.FromUUID(row.ID),
		UserID:    repository.FromUUID(row.UserID),
		ProductID: repository.FromUUID(row.ProductID),
		Name:      row.Name,
		Price:     domain.FromPaise(row.PricePaise),
		Image:     row.Image,
		CreatedAt: row.CreatedAt.Time,
	}
}
