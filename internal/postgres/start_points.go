package postgres

import (
	"context"
	"fmt"

	"deliverysim/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const startPointBatchSize = 500

// ReplaceStartPoints deletes every point previously loaded from source and
// inserts points in batches, in one transaction
func ReplaceStartPoints(ctx context.Context, db *gorm.DB, source string, points []model.StartPointPG) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("source = ?", source).Delete(&model.StartPointPG{}).Error; err != nil {
			return fmt.Errorf("delete old %s start points: %w", source, err)
		}
		if len(points) == 0 {
			return nil
		}
		for i := range points {
			points[i].Source = source
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(points, startPointBatchSize).Error; err != nil {
			return fmt.Errorf("insert start points: %w", err)
		}
		return nil
	})
}

// LoadStartPoints returns every stored start point ordered by id
func LoadStartPoints(ctx context.Context, db *gorm.DB) ([]model.StartPointPG, error) {
	var rows []model.StartPointPG
	if err := db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load start points: %w", err)
	}
	return rows, nil
}
