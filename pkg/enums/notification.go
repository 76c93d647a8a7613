package enums

import "fmt"

// NotificationCategory groups notification types for user preferences.
type NotificationCategory string

const (
	NotificationCategorySystem  NotificationCategory = "system"
	NotificationCategoryEvents  NotificationCategory = "events"
	NotificationCategoryNetwork NotificationCategory = "network"
)

var validNotificationCategories = []NotificationCategory{
	NotificationCategorySystem,
	NotificationCategoryEvents,
	NotificationCategoryNetwork,
}

// IsValid checks whether the category matches the canonical enum.
func (c NotificationCategory) IsValid() bool {
	for _, candidate := range validNotificationCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeEventPayoutStatus NotificationType = "EVENT_PAYOUT_STATUS"
	NotificationTypeStripeStatus      NotificationType = "STRIPE_STATUS"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeEventPayoutStatus,
	NotificationTypeStripeStatus,
}

var categoryByNotificationType = map[NotificationType]NotificationCategory{
	NotificationTypeEventPayoutStatus: NotificationCategorySystem,
	NotificationTypeStripeStatus:      NotificationCategorySystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// Category returns the preference category the type belongs to.
func (n NotificationType) Category() NotificationCategory {
	if category, ok := categoryByNotificationType[n]; ok {
		return category
	}
	return NotificationCategorySystem
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
