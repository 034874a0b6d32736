package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"trade_desk/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists client preferences and the cached symbol catalog
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path.
// An empty path resolves to the per-user config directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		var err error
		path, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newStorage(db)
}

func newStorage(db *gorm.DB) (*Storage, error) {
	// Auto Migration
	if err := db.AutoMigrate(&domain.SymbolInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "TradeDesk", "data", "trade_desk.db"), nil
}

// Close releases the underlying connection
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Symbol Operations
// ======================================================================================

// UpsertSymbol creates or updates symbol metadata
func (s *Storage) UpsertSymbol(info *domain.SymbolInfo) error {
	info.Symbol = domain.NormalizeSymbol(info.Symbol)
	return s.db.Save(info).Error
}

// GetSymbol retrieves symbol metadata
func (s *Storage) GetSymbol(symbol string) (*domain.SymbolInfo, error) {
	var info domain.SymbolInfo
	err := s.db.First(&info, "symbol = ?", domain.NormalizeSymbol(symbol)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// GetAllSymbols retrieves all cached symbols ordered by name
func (s *Storage) GetAllSymbols() ([]domain.SymbolInfo, error) {
	var infos []domain.SymbolInfo
	err := s.db.Order("symbol").Find(&infos).Error
	return infos, err
}

// ToggleFavorite toggles the favorite status of a symbol
func (s *Storage) ToggleFavorite(symbol string) (bool, error) {
	var info domain.SymbolInfo
	if err := s.db.First(&info, "symbol = ?", domain.NormalizeSymbol(symbol)).Error; err != nil {
		return false, err
	}

	info.IsFavorite = !info.IsFavorite
	err := s.db.Save(&info).Error
	return info.IsFavorite, err
}

// DeleteSymbol deletes a symbol from the catalog cache
func (s *Storage) DeleteSymbol(symbol string) error {
	return s.db.Where("symbol = ?", domain.NormalizeSymbol(symbol)).Delete(&domain.SymbolInfo{}).Error
}

// SyncCatalog marks the given symbols active and every other cached symbol inactive.
// Favorites survive a sync.
func (s *Storage) SyncCatalog(symbols []string, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.SymbolInfo{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
			return err
		}

		for _, sym := range symbols {
			sym = domain.NormalizeSymbol(sym)
			if sym == "" {
				continue
			}
			info := domain.SymbolInfo{Symbol: sym, IsActive: true, SyncedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}},
				DoUpdates: clause.AssignmentColumns([]string{"is_active", "synced_at", "updated_at"}),
			}).Create(&info).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// GetConfig returns one configuration value and whether it exists
func (s *Storage) GetConfig(key string) (string, bool, error) {
	var config domain.AppConfig
	err := s.db.First(&config, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return config.Value, true, nil
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
