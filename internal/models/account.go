package models

import "time"

// SocialAccount is the single connected account of a platform.
//
// ProfileURL is platform specific: a public profile URL for LinkedIn, the
// page id for Facebook and the Instagram business user id for Instagram.
type SocialAccount struct {
	ID                    string     `json:"id"`
	Platform              Platform   `json:"platform"`
	Name                  string     `json:"name"`
	ProfileURL            string     `json:"profile_url"`
	AccessTokenEncrypted  string     `json:"-"`
	RefreshTokenEncrypted string     `json:"-"`
	TokenExpiresAt        *time.Time `json:"token_expires_at"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Expired reports whether the stored expiry has passed. Accounts without an
// expiry never expire locally.
func (a *SocialAccount) Expired(now time.Time) bool {
	return a.TokenExpiresAt != nil && now.After(*a.TokenExpiresAt)
}
