package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for order, payment and webhook
// observability.
//
// The Record* helpers are safe to call on a nil receiver so services can run
// without metrics in tests.
type BusinessMetrics struct {
	// Orders
	OrdersCreated      *prometheus.CounterVec
	OrderValue         *prometheus.HistogramVec
	OrderItemCount     *prometheus.HistogramVec
	OrderStatusChanged *prometheus.CounterVec

	// Payments
	PaymentsConfirmed *prometheus.CounterVec
	PaymentsFailed    *prometheus.CounterVec
	StockShortfalls   *prometheus.CounterVec
	ReconcileOutcomes *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Cart and wishlist
	CartItemsAdded *prometheus.CounterVec
	WishlistAdds   prometheus.Counter

	// Auth
	OTPSent     prometheus.Counter
	Logins      *prometheus.CounterVec
	LoginFailed *prometheus.CounterVec

	// Background jobs
	JobsEnqueued  *prometheus.CounterVec
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Revenue tracking
	RevenueCollected *prometheus.CounterVec
	RefundsIssued    *prometheus.CounterVec
	RefundAmount     *prometheus.CounterVec

	// Email delivery
	EmailSent   *prometheus.CounterVec
	EmailFailed *prometheus.CounterVec

	// External API performance
	GatewayAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "haat"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
			[]string{"payment_method"},
		),
		OrderValue: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_rupees",
				Help:      "Order total in rupees",
				Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 25000},
			},
			[]string{"payment_method"},
		),
		OrderItemCount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Number of lines per order",
				Buckets:   []float64{1, 2, 3, 5, 10, 20},
			},
			[]string{"payment_method"},
		),
		OrderStatusChanged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_status_changes_total",
				Help:      "Order status transitions",
			},
			[]string{"from", "to"},
		),

		// =======================================================================
		// Payments
		// =======================================================================
		PaymentsConfirmed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_confirmed_total",
				Help:      "Payments confirmed, by confirmation path",
			},
			[]string{"source"}, // source: client, webhook, reconcile
		),
		PaymentsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_failed_total",
				Help:      "Payments that failed or were rejected",
			},
			[]string{"reason"},
		),
		StockShortfalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_shortfalls_total",
				Help:      "Captured payments whose stock could not be decremented",
			},
			[]string{"source"},
		),
		ReconcileOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reconcile_outcomes_total",
				Help:      "Pending-payment reconciliation results",
			},
			[]string{"outcome"}, // outcome: confirmed, expired, pending, error
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Total webhooks received",
			},
			[]string{"provider", "event_type"},
		),
		WebhookProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_processed_total",
				Help:      "Total webhooks processed",
			},
			[]string{"provider", "event_type", "result"}, // result: processed, duplicate, ignored
		),
		WebhookFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_failed_total",
				Help:      "Total webhook processing failures",
			},
			[]string{"provider", "reason"},
		),
		WebhookLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_processing_duration_seconds",
				Help:      "Webhook processing duration",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"provider"},
		),

		// =======================================================================
		// Cart and wishlist
		// =======================================================================
		CartItemsAdded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total add to cart actions",
			},
			[]string{"merged"},
		),
		WishlistAdds: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wishlist_adds_total",
				Help:      "Total products saved to a wishlist",
			},
		),

		// =======================================================================
		// Auth
		// =======================================================================
		OTPSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "otp_sent_total",
				Help:      "Total login OTPs sent",
			},
		),
		Logins: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "logins_total",
				Help:      "Successful logins",
			},
			[]string{"method"},
		),
		LoginFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "login_failed_total",
				Help:      "Failed login attempts",
			},
			[]string{"reason"},
		),

		// =======================================================================
		// Background Jobs
		// =======================================================================
		JobsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_enqueued_total",
				Help:      "Total background jobs enqueued",
			},
			[]string{"job_type"},
		),
		JobsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_processed_total",
				Help:      "Total background jobs processed successfully",
			},
			[]string{"job_type"},
		),
		JobsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "jobs_failed_total",
				Help:      "Total background job failures",
			},
			[]string{"job_type"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "job_duration_seconds",
				Help:      "Background job execution duration",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job_type"},
		),

		// =======================================================================
		// Revenue Tracking
		// =======================================================================
		RevenueCollected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "revenue_rupees_total",
				Help:      "Total revenue collected in rupees",
			},
			[]string{"payment_method"},
		),
		RefundsIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refunds_issued_total",
				Help:      "Total refunds issued",
			},
			[]string{"kind"}, // kind: full, partial
		),
		RefundAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refund_amount_rupees_total",
				Help:      "Total amount refunded in rupees",
			},
			[]string{"kind"},
		),

		// =======================================================================
		// Email Delivery
		// =======================================================================
		EmailSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emails_sent_total",
				Help:      "Total emails sent by type",
			},
			[]string{"email_type"},
		),
		EmailFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emails_failed_total",
				Help:      "Total email delivery failures",
			},
			[]string{"email_type"},
		),

		// =======================================================================
		// External API Performance
		// =======================================================================
		GatewayAPILatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_api_duration_seconds",
				Help:      "Payment gateway call duration (separates app slowness from gateway issues)",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "operation"}, // operation: create_order, fetch_payment, refund
		),
	}

	return m
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// RecordOrderCreated counts a new order and observes its value.
func (m *BusinessMetrics) RecordOrderCreated(paymentMethod string, totalRupees float64, items int) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(paymentMethod).Inc()
	m.OrderValue.WithLabelValues(paymentMethod).Observe(totalRupees)
	m.OrderItemCount.WithLabelValues(paymentMethod).Observe(float64(items))
}

// RecordStatusChange counts an order status transition.
func (m *BusinessMetrics) RecordStatusChange(from, to string) {
	if m == nil {
		return
	}
	m.OrderStatusChanged.WithLabelValues(from, to).Inc()
}

// RecordPaymentConfirmed counts a captured payment and its revenue.
func (m *BusinessMetrics) RecordPaymentConfirmed(source, paymentMethod string, totalRupees float64) {
	if m == nil {
		return
	}
	m.PaymentsConfirmed.WithLabelValues(source).Inc()
	m.RevenueCollected.WithLabelValues(paymentMethod).Add(totalRupees)
}

// RecordPaymentFailed counts a failed or rejected payment.
func (m *BusinessMetrics) RecordPaymentFailed(reason string) {
	if m == nil {
		return
	}
	m.PaymentsFailed.WithLabelValues(reason).Inc()
}

// RecordStockShortfall counts a paid order whose stock was not available.
func (m *BusinessMetrics) RecordStockShortfall(source string) {
	if m == nil {
		return
	}
	m.StockShortfalls.WithLabelValues(source).Inc()
}

// RecordReconcile counts a reconciliation outcome.
func (m *BusinessMetrics) RecordReconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileOutcomes.WithLabelValues(outcome).Inc()
}

// RecordRefund counts a refund.
func (m *BusinessMetrics) RecordRefund(kind string, amountRupees float64) {
	if m == nil {
		return
	}
	m.RefundsIssued.WithLabelValues(kind).Inc()
	m.RefundAmount.WithLabelValues(kind).Add(amountRupees)
}

// RecordCartAdd counts an add to cart.
func (m *BusinessMetrics) RecordCartAdd(merged bool) {
	if m == nil {
		return
	}
	label := "false"
	if merged {
		label = "true"
	}
	m.CartItemsAdded.WithLabelValues(label).Inc()
}

// RecordWishlistAdd counts a wishlist save.
func (m *BusinessMetrics) RecordWishlistAdd() {
	if m == nil {
		return
	}
	m.WishlistAdds.Inc()
}

// RecordOTPSent counts an OTP delivery.
func (m *BusinessMetrics) RecordOTPSent() {
	if m == nil {
		return
	}
	m.OTPSent.Inc()
}

// RecordLogin counts a login by method, or a failure by reason.
func (m *BusinessMetrics) RecordLogin(method string, failureReason string) {
	if m == nil {
		return
	}
	if failureReason != "" {
		m.LoginFailed.WithLabelValues(failureReason).Inc()
		return
	}
	m.Logins.WithLabelValues(method).Inc()
}

// RecordJobEnqueued counts an enqueued job.
func (m *BusinessMetrics) RecordJobEnqueued(jobType string) {
	if m == nil {
		return
	}
	m.JobsEnqueued.WithLabelValues(jobType).Inc()
}

// RecordJobResult counts a finished job and observes its duration.
func (m *BusinessMetrics) RecordJobResult(jobType string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(seconds)
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType).Inc()
		return
	}
	m.JobsProcessed.WithLabelValues(jobType).Inc()
}

// RecordEmail counts a delivered or failed email.
func (m *BusinessMetrics) RecordEmail(emailType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EmailFailed.WithLabelValues(emailType).Inc()
		return
	}
	m.EmailSent.WithLabelValues(emailType).Inc()
}

// ObserveGatewayCall records the latency of a payment gateway call.
func (m *BusinessMetrics) ObserveGatewayCall(provider, operation string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayAPILatency.WithLabelValues(provider, operation).Observe(seconds)
}

// RecordWebhookReceived counts an incoming webhook delivery.
func (m *BusinessMetrics) RecordWebhookReceived(provider, eventType string) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(provider, eventType).Inc()
}

// RecordWebhookResult counts a handled webhook and observes its latency.
// A non-empty failureReason marks the delivery as failed.
func (m *BusinessMetrics) RecordWebhookResult(provider, eventType, result, failureReason string, seconds float64) {
	if m == nil {
		return
	}
	m.WebhookLatency.WithLabelValues(provider).Observe(seconds)
	if failureReason != "" {
		m.WebhookFailed.WithLabelValues(provider, failureReason).Inc()
		return
	}
	m.WebhookProcessed.WithLabelValues(provider, eventType, result).Inc()
}
