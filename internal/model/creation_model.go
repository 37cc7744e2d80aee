package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Creation struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId         string    `gorm:"type:varchar(64);not null;index"`
	Prompt         string    `gorm:"type:text"`
	Negative       *string   `gorm:"type:text"`
	AspectRatio    string    `gorm:"type:varchar(20)"`
	ImageSize      string    `gorm:"type:varchar(20)"`
	ShotPreset     *string   `gorm:"type:varchar(100)"`
	LightingPreset *string   `gorm:"type:varchar(100)"`
	FocalLength    *float64
	Guidance       *float64
	InputImageUrls datatypes.JSON `gorm:"type:json"`
	OutputImageUrl string         `gorm:"type:text;not null"`
	Status         string         `gorm:"type:varchar(20);not null;default:'SUCCESS'"`
	SessionId      string         `gorm:"type:varchar(64);index"`
	CreationType   string         `gorm:"type:varchar(32);not null;default:'standard'"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
}

func (Creation) TableName() string {
	return "creations"
}
