package models

import (
	"time"
)

// StorefrontTheme holds the visual choices collected by the wizard.
type StorefrontTheme struct {
	Color       string `json:"color,omitempty"`
	Font        string `json:"font,omitempty"`
	Style       string `json:"style,omitempty"`
	Borders     string `json:"borders,omitempty"`
	Buttons     string `json:"buttons,omitempty"`
	ImageView   string `json:"image_view,omitempty"`
	VisualStyle string `json:"visual_style,omitempty"`
}

// Seller is one storefront owner, keyed by email.
type Seller struct {
	Email        string          `gorm:"column:email;primaryKey"`
	AdminKeyHash string          `gorm:"column:admin_key_hash;not null"`
	StoreName    string          `gorm:"column:store_name"`
	About        string          `gorm:"column:about"`
	Location     string          `gorm:"column:location"`
	MapLink      string          `gorm:"column:map_link"`
	Facebook     string          `gorm:"column:facebook"`
	Instagram    string          `gorm:"column:instagram"`
	Whatsapp     string          `gorm:"column:whatsapp"`
	LogoURL      string          `gorm:"column:logo_url"`
	Theme        StorefrontTheme `gorm:"column:theme;type:jsonb;serializer:json"`

	// Payment gateway credentials. Access token may be refreshed out of the
	// refresh token; a refreshed token is persisted before it is used.
	MPAccessToken    string     `gorm:"column:mp_access_token"`
	MPRefreshToken   string     `gorm:"column:mp_refresh_token"`
	MPTokenExpiresAt *time.Time `gorm:"column:mp_token_expires_at"`

	// Static mirror repository, created on demand.
	RepoName string `gorm:"column:repo_name"`
	RepoURL  string `gorm:"column:repo_url"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
