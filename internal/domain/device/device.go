package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const unknown = "unknown"

// Signals are the raw client-reported characteristics a fingerprint is
// derived from. Zero values render as the literal "unknown" so that a
// client omitting a field still produces a stable identity.
type Signals struct {
	UserAgent           string `json:"userAgent"`
	Platform            string `json:"platform"`
	Language            string `json:"language"`
	ScreenWidth         int    `json:"screenWidth"`
	ScreenHeight        int    `json:"screenHeight"`
	ColorDepth          int    `json:"colorDepth"`
	TimezoneOffset      *int   `json:"timezoneOffset"`
	HardwareConcurrency int    `json:"hardwareConcurrency"`
	DeviceMemory        int    `json:"deviceMemory"`
}

// Info is the derived device identity attached to a session.
type Info struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	UserAgent        string `json:"userAgent"`
	Platform         string `json:"platform"`
	ScreenResolution string `json:"screenResolution"`
	ColorDepth       int    `json:"colorDepth"`
	Timezone         string `json:"timezone"`
	Language         string `json:"language"`
	IsMobile         bool   `json:"isMobile"`
	IsBot            bool   `json:"isBot"`
}

// Fingerprint derives the stable device ID from the signal tuple: the
// fields joined in fixed order, SHA-256, hex. Same signals always yield the
// same ID. It is an identity key, not a secret.
func Fingerprint(s Signals) string {
	parts := []string{
		orUnknown(s.UserAgent),
		orUnknown(s.Platform),
		orUnknown(s.Language),
		intOrUnknown(s.ScreenWidth),
		intOrUnknown(s.ScreenHeight),
		intOrUnknown(s.ColorDepth),
		tzOrUnknown(s.TimezoneOffset),
		intOrUnknown(s.HardwareConcurrency),
		intOrUnknown(s.DeviceMemory),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Describe builds the full device Info for a set of signals.
func Describe(s Signals) *Info {
	platform, browser := Classify(s.UserAgent)
	info := &Info{
		ID:         Fingerprint(s),
		Name:       fmt.Sprintf("%s / %s", browser, platform),
		UserAgent:  s.UserAgent,
		Platform:   platform,
		ColorDepth: s.ColorDepth,
		Timezone:   tzOrUnknown(s.TimezoneOffset),
		Language:   orUnknown(s.Language),
		IsMobile:   platform == "Android" || platform == "iOS",
		IsBot:      IsBot(s.UserAgent),
	}
	if s.ScreenWidth > 0 && s.ScreenHeight > 0 {
		info.ScreenResolution = fmt.Sprintf("%dx%d", s.ScreenWidth, s.ScreenHeight)
	} else {
		info.ScreenResolution = unknown
	}
	return info
}

// Classify maps a user agent to (platform, browser) via first-match-wins
// substring tests. Order matters: iOS before macOS (iPads report "like Mac
// OS X"), Android before Linux, Edge before Chrome.
func Classify(userAgent string) (platform, browser string) {
	platform = "Unknown"
	switch {
	case strings.Contains(userAgent, "Windows"):
		platform = "Windows"
	case strings.Contains(userAgent, "iPhone"), strings.Contains(userAgent, "iPad"), strings.Contains(userAgent, "iOS"):
		platform = "iOS"
	case strings.Contains(userAgent, "Android"):
		platform = "Android"
	case strings.Contains(userAgent, "Mac OS X"), strings.Contains(userAgent, "Macintosh"):
		platform = "macOS"
	case strings.Contains(userAgent, "Linux"):
		platform = "Linux"
	}

	browser = "Unknown"
	switch {
	case strings.Contains(userAgent, "Edg/"), strings.Contains(userAgent, "Edge"):
		browser = "Edge"
	case strings.Contains(userAgent, "Chrome"):
		browser = "Chrome"
	case strings.Contains(userAgent, "Firefox"):
		browser = "Firefox"
	case strings.Contains(userAgent, "Safari"):
		browser = "Safari"
	}
	return platform, browser
}

var botMarkers = []string{"bot", "crawler", "spider", "scraper", "curl", "wget", "postman", "insomnia"}

// IsBot reports whether the user agent carries any known automation marker.
func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func intOrUnknown(n int) string {
	if n <= 0 {
		return unknown
	}
	return fmt.Sprintf("%d", n)
}

// tzOrUnknown renders a timezone offset in minutes; a nil pointer means the
// client never reported one. Offset 0 (UTC) is a real value.
func tzOrUnknown(offset *int) string {
	if offset == nil {
		return unknown
	}
	return fmt.Sprintf("%d", *offset)
}
