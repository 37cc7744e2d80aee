package dto

import (
	"encoding/json"

	"genstudio-be/pkg/reconcile"
)

// GenerationRequest is the subset of a generation body the proxy reads. The
// raw body is forwarded to the backend verbatim, unknown fields included.
type GenerationRequest struct {
	Prompt          string          `json:"prompt"`
	NegativePrompt  *string         `json:"negative_prompt,omitempty"`
	AspectRatio     string          `json:"aspect_ratio,omitempty"`
	ImageSize       string          `json:"image_size,omitempty"`
	Images          []string        `json:"images,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	ReferenceImages []string        `json:"reference_images,omitempty"`
	ShotPreset      *string         `json:"shot_preset,omitempty"`
	LightingPreset  *string         `json:"lighting_preset,omitempty"`
	FocalLength     *float64        `json:"focal_length,omitempty"`
	GuidanceScale   *float64        `json:"guidance_scale,omitempty"`
	Persona         json.RawMessage `json:"persona,omitempty"`
}

func (r GenerationRequest) ToMeta() reconcile.RequestMeta {
	return reconcile.RequestMeta{
		Prompt:          r.Prompt,
		NegativePrompt:  r.NegativePrompt,
		AspectRatio:     r.AspectRatio,
		ImageSize:       r.ImageSize,
		Images:          r.Images,
		ImageURL:        r.ImageURL,
		ReferenceImages: r.ReferenceImages,
		ShotPreset:      r.ShotPreset,
		LightingPreset:  r.LightingPreset,
		FocalLength:     r.FocalLength,
		GuidanceScale:   r.GuidanceScale,
		Persona:         r.Persona,
	}
}

// ProxyErrorResponse is the error body of the generation routes.
type ProxyErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Cost    *int   `json:"cost,omitempty"`
	Balance *int   `json:"balance,omitempty"`
}

// ProxyResponse is what the generation routes write back to the client.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// TaskTerminalMessage is published on the task topic when the server side
// poller sees a task finish.
type TaskTerminalMessage struct {
	TaskID   string                 `json:"task_id"`
	Status   string                 `json:"status"`
	Progress float64                `json:"progress"`
	Message  string                 `json:"message"`
	Result   map[string]interface{} `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}
