package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeItemRequestCreated   NotificationType = "item_request_created"
	NotificationTypeItemRequestApproved  NotificationType = "item_request_approved"
	NotificationTypeItemRequestRejected  NotificationType = "item_request_rejected"
	NotificationTypeItemRequestCancelled NotificationType = "item_request_cancelled"
	NotificationTypeItemRequestCompleted NotificationType = "item_request_completed"
	NotificationTypeLoopInvitation       NotificationType = "loop_invitation"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeItemRequestCreated,
	NotificationTypeItemRequestApproved,
	NotificationTypeItemRequestRejected,
	NotificationTypeItemRequestCancelled,
	NotificationTypeItemRequestCompleted,
	NotificationTypeLoopInvitation,
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

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
