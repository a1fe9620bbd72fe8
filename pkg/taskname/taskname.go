package taskname

const (
	// Loyalty tasks
	LoyaltyNotify = "loyalty:notify"
)

// Queues
const (
	QueueCritical      = "critical"
	QueueNotifications = "notifications"
	QueueDefault       = "default"
)
