package dto

import (
	"time"

	"genstudio-be/pkg/reconcile"

	"github.com/google/uuid"
)

type CreationResponse struct {
	Id             uuid.UUID `json:"id"`
	Prompt         string    `json:"prompt"`
	Negative       *string   `json:"negative,omitempty"`
	AspectRatio    string    `json:"aspectRatio"`
	ImageSize      string    `json:"imageSize"`
	ShotPreset     *string   `json:"shotPreset,omitempty"`
	LightingPreset *string   `json:"lightingPreset,omitempty"`
	FocalLength    *float64  `json:"focalLength,omitempty"`
	Guidance       *float64  `json:"guidance,omitempty"`
	InputImageUrls []string  `json:"inputImageUrls"`
	OutputImageUrl string    `json:"outputImageUrl"`
	Status         string    `json:"status"`
	SessionId      string    `json:"sessionId"`
	CreationType   string    `json:"creationType"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SaveCreationRequest is a manual save of a result the client already holds.
type SaveCreationRequest struct {
	OutputImage    string   `json:"outputImage" validate:"required"`
	InputImages    []string `json:"inputImages"`
	Prompt         string   `json:"prompt"`
	Negative       *string  `json:"negative"`
	AspectRatio    string   `json:"aspectRatio"`
	ImageSize      string   `json:"imageSize"`
	ShotPreset     *string  `json:"shotPreset"`
	LightingPreset *string  `json:"lightingPreset"`
	FocalLength    *float64 `json:"focalLength"`
	Guidance       *float64 `json:"guidance"`
}

func (r SaveCreationRequest) ToMeta() reconcile.RequestMeta {
	return reconcile.RequestMeta{
		Prompt:         r.Prompt,
		NegativePrompt: r.Negative,
		AspectRatio:    r.AspectRatio,
		ImageSize:      r.ImageSize,
		Images:         r.InputImages,
		ShotPreset:     r.ShotPreset,
		LightingPreset: r.LightingPreset,
		FocalLength:    r.FocalLength,
		GuidanceScale:  r.Guidance,
	}
}

type SaveCreationResponse struct {
	Success bool      `json:"success"`
	Id      uuid.UUID `json:"id"`
}

type LibraryPageRequest struct {
	Page  int `query:"page" validate:"gte=1"`
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}
