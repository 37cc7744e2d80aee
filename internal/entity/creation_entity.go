package entity

import (
	"time"

	"github.com/google/uuid"
)

type CreationType string

const (
	CreationTypeStandard     CreationType = "standard"
	CreationTypeExtraction   CreationType = "extraction"
	CreationTypeDigitalHuman CreationType = "digital_human"
)

const CreationStatusSuccess = "SUCCESS"

type Creation struct {
	Id             uuid.UUID
	UserId         string
	Prompt         string
	Negative       *string
	AspectRatio    string
	ImageSize      string
	ShotPreset     *string
	LightingPreset *string
	FocalLength    *float64
	Guidance       *float64
	InputImageUrls []string
	OutputImageUrl string
	Status         string
	SessionId      string
	CreationType   CreationType
	CreatedAt      time.Time
}
