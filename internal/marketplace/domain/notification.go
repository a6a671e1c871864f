package domain

import "time"

// NotificationType tags a notification for client-side rendering.
type NotificationType string

const (
	NotificationApplication NotificationType = "candidature"
	NotificationAccepted    NotificationType = "acceptation"
	NotificationRefused     NotificationType = "refus"
	NotificationCancelled   NotificationType = "annulation"
	NotificationApproval    NotificationType = "approbation_demandee"
	NotificationCompleted   NotificationType = "termine"
	NotificationReview      NotificationType = "avis"
)

// Notification is an entry of a recipient's feed. Only Read ever changes.
type Notification struct {
	ID            string
	RecipientID   string
	Message       string
	Type          NotificationType
	FromUserID    string
	RelatedDealID *string
	TargetRoute   *string
	Read          bool
	CreatedAt     time.Time
}
