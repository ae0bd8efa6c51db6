package startpoint

import (
	"context"

	"deliverysim/internal/postgres"

	"github.com/paulmach/orb"
	"gorm.io/gorm"
)

// PGSource reads the start_points table
type PGSource struct {
	db *gorm.DB
}

func NewPGSource(db *gorm.DB) *PGSource {
	return &PGSource{db: db}
}

func (s *PGSource) QueryAll(ctx context.Context) ([]orb.Point, error) {
	rows, err := postgres.LoadStartPoints(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoStartPoints
	}

	result := make([]orb.Point, len(rows))
	for i, r := range rows {
		result[i] = r.Point()
	}
	return result, nil
}
