package domain

import (
	"time"
)

// SymbolInfo caches a tradable symbol from the backend catalog
type SymbolInfo struct {
	Symbol     string    `gorm:"primaryKey" json:"symbol"`
	IsActive   bool      `json:"is_active" gorm:"index"`   // Listed by the last catalog sync
	IsFavorite bool      `json:"is_favorite" gorm:"index"` // User favorite status
	SyncedAt   time.Time `json:"synced_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preference keys stored in AppConfig
const (
	PrefLastSymbol   = "last_symbol"
	PrefLastInterval = "last_interval"
)

// User is the account returned by the auth endpoints
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
