package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypePetStatus        NotificationType = "pet_status"
	NotificationTypeAdminMessage     NotificationType = "admin_message"
	NotificationTypeAmbassadorStatus NotificationType = "ambassador_status"
	NotificationTypeReferral         NotificationType = "referral"
	NotificationTypePayout           NotificationType = "payout"
	NotificationTypeWaitingPeriod    NotificationType = "waiting_period"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePetStatus,
	NotificationTypeAdminMessage,
	NotificationTypeAmbassadorStatus,
	NotificationTypeReferral,
	NotificationTypePayout,
	NotificationTypeWaitingPeriod,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
