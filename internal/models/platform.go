package models

import "fmt"

// Platform identifies a social network. The set is closed: adding one means
// adding a platform client and registering it, nothing else.
type Platform string

const (
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// Platforms lists every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformLinkedIn, PlatformInstagram, PlatformFacebook}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformLinkedIn, PlatformInstagram, PlatformFacebook:
		return true
	}
	return false
}

// ParsePlatform converts user input into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// DisplayName is the human form used in messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformInstagram:
		return "Instagram"
	case PlatformFacebook:
		return "Facebook"
	}
	return string(p)
}

// Capabilities describes what a platform client can do.
type Capabilities struct {
	MaxLength     int  `json:"max_length"`
	Comments      bool `json:"comments"`
	Replies       bool `json:"replies"`
	RequiresImage bool `json:"requires_image"`
}
