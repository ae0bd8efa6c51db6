package model

import (
	"time"

	"github.com/paulmach/orb"
	"gorm.io/gorm"
)

// StartPointPG is a candidate depot location stored in PostgreSQL
type StartPointPG struct {
	ID     uint    `gorm:"primaryKey"`
	Name   string  `gorm:"size:255"`
	Source string  `gorm:"size:32;not null;index"`
	Lon    float64 `gorm:"not null"`
	Lat    float64 `gorm:"not null"`

	UpdatedAt time.Time      `gorm:"column:updated_at"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName overrides the table name
func (StartPointPG) TableName() string {
	return "start_points"
}

func (p StartPointPG) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
