package mapper

import (
	"encoding/json"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CreationMapper struct{}

func NewCreationMapper() *CreationMapper {
	return &CreationMapper{}
}

func (m *CreationMapper) ToEntity(c *model.Creation) *entity.Creation {
	if c == nil {
		return nil
	}

	inputs := []string{}
	if len(c.InputImageUrls) > 0 {
		// A malformed column degrades to an empty list rather than failing the read.
		_ = json.Unmarshal(c.InputImageUrls, &inputs)
	}

	return &entity.Creation{
		Id:             c.Id,
		UserId:         c.UserId,
		Prompt:         c.Prompt,
		Negative:       c.Negative,
		AspectRatio:    c.AspectRatio,
		ImageSize:      c.ImageSize,
		ShotPreset:     c.ShotPreset,
		LightingPreset: c.LightingPreset,
		FocalLength:    c.FocalLength,
		Guidance:       c.Guidance,
		InputImageUrls: inputs,
		OutputImageUrl: c.OutputImageUrl,
		Status:         c.Status,
		SessionId:      c.SessionId,
		CreationType:   entity.CreationType(c.CreationType),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *CreationMapper) ToModel(c *entity.Creation) *model.Creation {
	if c == nil {
		return nil
	}

	id := c.Id
	if id == uuid.Nil {
		id = uuid.New()
	}

	inputs := c.InputImageUrls
	if inputs == nil {
		inputs = []string{}
	}
	raw, _ := json.Marshal(inputs)

	status := c.Status
	if status == "" {
		status = entity.CreationStatusSuccess
	}
	creationType := c.CreationType
	if creationType == "" {
		creationType = entity.CreationTypeStandard
	}

	return &model.Creation{
		Id:             id,
		UserId:         c.UserId,
		Prompt:         c.Prompt,
		Negative:       c.Negative,
		AspectRatio:    c.AspectRatio,
		ImageSize:      c.ImageSize,
		ShotPreset:     c.ShotPreset,
		LightingPreset: c.LightingPreset,
		FocalLength:    c.FocalLength,
		Guidance:       c.Guidance,
		InputImageUrls: datatypes.JSON(raw),
		OutputImageUrl: c.OutputImageUrl,
		Status:         status,
		SessionId:      c.SessionId,
		CreationType:   string(creationType),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *CreationMapper) ToEntities(creations []*model.Creation) []*entity.Creation {
	entities := make([]*entity.Creation, len(creations))
	for i, c := range creations {
		entities[i] = m.ToEntity(c)
	}
	return entities
}
