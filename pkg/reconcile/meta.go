package reconcile

import (
	"bytes"
	"encoding/json"
)

// RequestMeta is the part of a generation request recorded on the creation.
type RequestMeta struct {
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

// HasPersona reports persona context that allows immediate classification.
func (m RequestMeta) HasPersona() bool {
	p := bytes.TrimSpace(m.Persona)
	return len(p) > 0 && !bytes.Equal(p, []byte("null")) && !bytes.Equal(p, []byte("{}")) && !bytes.Equal(p, []byte(`""`))
}

// InputRefs lists every input image once, in request order.
func (m RequestMeta) InputRefs() []string {
	seen := make(map[string]struct{})
	var refs []string
	add := func(ref string) {
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	for _, img := range m.Images {
		add(img)
	}
	add(m.ImageURL)
	for _, img := range m.ReferenceImages {
		add(img)
	}
	return refs
}
