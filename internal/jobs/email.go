package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/haat/internal/email"
	"github.com/dukerupert/haat/internal/repository"
)

// Job type constants for email jobs
const (
	JobTypeOrderConfirmation    = "email:order_confirmation"
	JobTypeShippingConfirmation = "email:shipping_confirmation"
	JobTypeRefundIssued         = "email:refund_issued"
)

// QueueEmail is the queue email jobs are placed on.
const QueueEmail = "email"

// Email job payloads (JSON-serializable)

// EmailItem is an order line as carried in an email payload.
type EmailItem struct {
	Name       string `json:"name"`
	Weight     string `json:"weight"`
	Quantity   int    `json:"quantity"`
	PricePaise int64  `json:"price_paise"`
}

// EmailAddress is a delivery address as carried in an email payload.
type EmailAddress struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	District string `json:"district"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
}

// OrderConfirmationPayload represents the payload for an order confirmation email job
type OrderConfirmationPayload struct {
	OrderID          uuid.UUID    `json:"order_id"`
	Email            string       `json:"email"`
	CustomerName     string       `json:"customer_name"`
	OrderDate        time.Time    `json:"order_date"`
	Items            []EmailItem  `json:"items"`
	SubtotalPaise    int64        `json:"subtotal_paise"`
	DeliveryFeePaise int64        `json:"delivery_fee_paise"`
	TotalPaise       int64        `json:"total_paise"`
	PaymentMethod    string       `json:"payment_method"`
	Address          EmailAddress `json:"address"`
}

// ShippingConfirmationPayload represents the payload for a shipping confirmation email job
type ShippingConfirmationPayload struct {
	OrderID      uuid.UUID    `json:"order_id"`
	Email        string       `json:"email"`
	CustomerName string       `json:"customer_name"`
	ShippedAt    time.Time    `json:"shipped_at"`
	Items        []EmailItem  `json:"items"`
	Address      EmailAddress `json:"address"`
}

// RefundIssuedPayload represents the payload for a refund notification job
type RefundIssuedPayload struct {
	OrderID      uuid.UUID `json:"order_id"`
	Email        string    `json:"email"`
	CustomerName string    `json:"customer_name"`
	AmountPaise  int64     `json:"amount_paise"`
	Reason       string    `json:"reason"`
	FullRefund   bool      `json:"full_refund"`
}

// EmailSender is the part of email.Service the email jobs use.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, data email.OrderConfirmationEmail) error
	SendShippingConfirmation(ctx context.Context, data email.ShippingConfirmationEmail) error
	SendRefundIssued(ctx context.Context, data email.RefundIssuedEmail) error
}

// Job enqueueing functions

// EnqueueOrderConfirmationEmail enqueues an order confirmation email job
func EnqueueOrderConfirmationEmail(ctx context.Context, q repository.Querier, payload OrderConfirmationPayload) error {
	return enqueueEmail(ctx, q, JobTypeOrderConfirmation, 100, payload)
}

// EnqueueShippingConfirmationEmail enqueues a shipping confirmation email job
func EnqueueShippingConfirmationEmail(ctx context.Context, q repository.Querier, payload ShippingConfirmationPayload) error {
	return enqueueEmail(ctx, q, JobTypeShippingConfirmation, 100, payload)
}

// EnqueueRefundIssuedEmail enqueues a refund notification email job
func EnqueueRefundIssuedEmail(ctx context.Context, q repository.Querier, payload RefundIssuedPayload) error {
	return enqueueEmail(ctx, q, JobTypeRefundIssued, 75, payload) // Higher priority for money movement
}

func enqueueEmail(ctx context.Context, q repository.Querier, jobType string, priority int32, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        jobType,
		Queue:          QueueEmail,
		Payload:        payloadJSON,
		Priority:       priority,
		MaxRetries:     3,
		ScheduledAt:    repository.Timestamptz(time.Now()),
		TimeoutSeconds: 30,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}
	return nil
}

// ProcessEmailJob processes an email job based on its type
func ProcessEmailJob(ctx context.Context, job *repository.Job, sender EmailSender) error {
	switch job.JobType {
	case JobTypeOrderConfirmation:
		var payload OrderConfirmationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal order confirmation payload: %w", err)
		}

		return sender.SendOrderConfirmation(ctx, email.OrderConfirmationEmail{
			Email:            payload.Email,
			CustomerName:     payload.CustomerName,
			OrderID:          payload.OrderID.String(),
			OrderDate:        payload.OrderDate,
			Items:            emailItems(payload.Items),
			SubtotalPaise:    payload.SubtotalPaise,
			DeliveryFeePaise: payload.DeliveryFeePaise,
			TotalPaise:       payload.TotalPaise,
			PaymentMethod:    payload.PaymentMethod,
			ShippingAddr:     emailAddress(payload.Address),
		})

	case JobTypeShippingConfirmation:
		var payload ShippingConfirmationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal shipping confirmation payload: %w", err)
		}

		return sender.SendShippingConfirmation(ctx, email.ShippingConfirmationEmail{
			Email:        payload.Email,
			CustomerName: payload.CustomerName,
			OrderID:      payload.OrderID.String(),
			ShippedDate:  payload.ShippedAt,
			Items:        emailItems(payload.Items),
			ShippingAddr: emailAddress(payload.Address),
		})

	case JobTypeRefundIssued:
		var payload RefundIssuedPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal refund issued payload: %w", err)
		}

		return sender.SendRefundIssued(ctx, email.RefundIssuedEmail{
			Email:        payload.Email,
			CustomerName: payload.CustomerName,
			OrderID:      payload.OrderID.String(),
			AmountPaise:  payload.AmountPaise,
			Reason:       payload.Reason,
			FullRefund:   payload.FullRefund,
		})

	default:
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}
}

// IsEmailJob checks if a job type is an email job
func IsEmailJob(jobType string) bool {
	switch jobType {
	case JobTypeOrderConfirmation,
		JobTypeShippingConfirmation,
		JobTypeRefundIssued:
		return true
	}
	return false
}

func emailItems(items []EmailItem) []email.OrderItem {
	out := make([]email.OrderItem, len(items))
	for i, item := range items {
		out[i] = email.OrderItem{
			ProductName: item.Name,
			Weight:      item.Weight,
			Quantity:    item.Quantity,
			PricePaise:  item.PricePaise,
			TotalPaise:  item.PricePaise * int64(item.Quantity),
		}
	}
	return out
}

func emailAddress(a EmailAddress) email.Address {
	return email.Address{
		Name:     a.Name,
		Phone:    a.Phone,
		Line1:    a.Address,
		District: a.District,
		State:    a.State,
		Zip:      a.Zip,
	}
}
