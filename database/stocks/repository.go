package stocks

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "marketflow/database/models_pkg"
)

// Repository handles the symbol registry.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new stocks repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetID looks up the stock_id for a symbol. Returns "" when the symbol is not
// registered.
func (r *Repository) GetID(symbol string) (string, error) {
	var stock models.Stock
	err := r.db.Select("stock_id").Where("symbol = ?", symbol).First(&stock).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("GetID: %w", err)
	}
	return stock.StockID, nil
}

// GetOrCreate resolves a symbol to its stock_id, inserting a registry row on
// first sight. It runs against the handle it is given, so callers that need
// the registry row and a child row in the same transaction pass their tx.
//
// The insert uses ON CONFLICT DO NOTHING followed by a re-select: if a
// concurrent writer registered the symbol first, its row wins and we use it.
func GetOrCreate(tx *gorm.DB, symbol, name, exchange string) (string, error) {
	var stock models.Stock
	err := tx.Select("stock_id").Where("symbol = ?", symbol).First(&stock).Error
	if err == nil {
		return stock.StockID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", fmt.Errorf("GetOrCreate lookup: %w", err)
	}

	if name == "" {
		name = symbol
	}
	candidate := models.Stock{
		StockID:  uuid.NewString(),
		Symbol:   symbol,
		Name:     name,
		Exchange: exchange,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(&candidate).Error
	if err != nil {
		return "", fmt.Errorf("GetOrCreate insert: %w", err)
	}

	// Re-select: on conflict our candidate row was discarded.
	err = tx.Select("stock_id").Where("symbol = ?", symbol).First(&stock).Error
	if err != nil {
		return "", fmt.Errorf("GetOrCreate re-select: %w", err)
	}
	return stock.StockID, nil
}

// GetOrCreate is the method form over the repository's own handle.
func (r *Repository) GetOrCreate(symbol, name, exchange string) (string, error) {
	return GetOrCreate(r.db, symbol, name, exchange)
}
