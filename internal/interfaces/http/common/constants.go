package common

const (
	// MaxRequestBody limits JSON request bodies.
	MaxRequestBody = 1 << 20
	// DefaultNotificationLimit is used when ?limit is absent.
	DefaultNotificationLimit = 50
)
