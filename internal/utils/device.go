package utils

import (
	"strings"

	"github.com/mssola/user_agent"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// DetectDeviceType classifies a user agent string. Tablets are matched
// before the mobile flag because most tablet agents also report mobile.
func DetectDeviceType(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return DeviceUnknown
	}

	lower := strings.ToLower(userAgent)
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
		return DeviceTablet
	}

	ua := user_agent.New(userAgent)
	switch {
	case ua.Bot():
		return DeviceBot
	case ua.Mobile():
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}
