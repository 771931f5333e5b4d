package events

// Topic constants for domain events emitted by the engine.
const (
	TopicOrderCreated    = "order.created"
	TopicPaymentCaptured = "payment.captured"
	TopicPaymentFailed   = "payment.failed"
	TopicLoyaltyAccrued  = "loyalty.accrued"
	TopicOrderRefunded   = "order.refunded"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicPaymentCaptured,
		TopicPaymentFailed,
		TopicLoyaltyAccrued,
		TopicOrderRefunded,
	}
}
