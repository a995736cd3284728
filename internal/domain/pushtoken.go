package domain

import (
	"strings"
	"time"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformUnknown Platform = "unknown"
)

// ParsePlatform normalises a client-supplied platform tag. Anything unrecognised is PlatformUnknown.
func ParsePlatform(s string) Platform {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformIOS:
		return PlatformIOS
	case PlatformAndroid:
		return PlatformAndroid
	}
	return PlatformUnknown
}

// PushToken is one registered device endpoint. Token is the primary key, so a token has
// exactly one owner at a time.
type PushToken struct {
	Token      string    `json:"token" dynamodbav:"token"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	Platform   Platform  `json:"platform" dynamodbav:"platform"`
	LastUsedAt time.Time `json:"last_used_at" dynamodbav:"last_used_at"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
}

type RegisterPushTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,max=32"`
}
