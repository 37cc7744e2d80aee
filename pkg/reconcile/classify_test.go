package reconcile

import (
	"encoding/json"
	"testing"
	"time"

	"genstudio-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name   string
		prompt string
		policy Policy
		want   entity.CreationType
	}{
		{"plain prompt", "a cat on a sofa", PolicyImmediate, entity.CreationTypeStandard},
		{"character sheet", "Create a Horizontal Character Sheet of her", PolicyDeferred, entity.CreationTypeExtraction},
		{"grid", "render a 2x2 GRID IMAGE", PolicyDeferred, entity.CreationTypeExtraction},
		{"reference sheet", "character reference sheet, front and back", PolicyImmediate, entity.CreationTypeExtraction},
		{"digital human immediate", "Digital Human portrait", PolicyImmediate, entity.CreationTypeDigitalHuman},
		{"best quality immediate", "best quality, 8k", PolicyImmediate, entity.CreationTypeDigitalHuman},
		{"digital human deferred", "digital human portrait", PolicyDeferred, entity.CreationTypeStandard},
		{"extraction wins over digital human", "digital human, character reference sheet", PolicyImmediate, entity.CreationTypeExtraction},
		{"empty", "", PolicyImmediate, entity.CreationTypeStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.prompt, tt.policy))
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier([]Rule{{Substrings: []string{"sheet"}, Result: entity.CreationTypeExtraction}})

	assert.Equal(t, entity.CreationTypeExtraction, c.Classify("model SHEET", PolicyDeferred))
	assert.Equal(t, entity.CreationTypeStandard, c.Classify("digital human", PolicyImmediate))
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyImmediate, PolicyFor(ModeAsync, RequestMeta{}))
	assert.Equal(t, PolicyDeferred, PolicyFor(ModeSync, RequestMeta{}))
	assert.Equal(t, PolicyDeferred, PolicyFor(ModeSync, RequestMeta{Persona: json.RawMessage("null")}))
	assert.Equal(t, PolicyImmediate, PolicyFor(ModeSync, RequestMeta{Persona: json.RawMessage(`{"name":"Ava"}`)}))
}

func TestEffectivePrompt(t *testing.T) {
	meta := RequestMeta{Prompt: "user prompt"}

	assert.Equal(t, "user prompt", EffectivePrompt(meta, map[string]interface{}{}))
	assert.Equal(t, "user prompt", EffectivePrompt(meta, map[string]interface{}{"prompt": ""}))
	assert.Equal(t, "templated", EffectivePrompt(meta, map[string]interface{}{"prompt": "templated"}))
}

func TestContinueSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	recent := &entity.Creation{SessionId: "s-1", CreatedAt: now.Add(-4 * time.Minute)}
	assert.Equal(t, "s-1", ContinueSession(recent, now))

	edge := &entity.Creation{SessionId: "s-2", CreatedAt: now.Add(-SessionWindow)}
	assert.Equal(t, "s-2", ContinueSession(edge, now))

	stale := &entity.Creation{SessionId: "s-3", CreatedAt: now.Add(-6 * time.Minute)}
	fresh := ContinueSession(stale, now)
	assert.NotEqual(t, "s-3", fresh)
	_, err := uuid.Parse(fresh)
	assert.NoError(t, err)

	assert.NotEmpty(t, ContinueSession(nil, now))
}

func TestRequestMeta_InputRefs(t *testing.T) {
	meta := RequestMeta{
		Images:          []string{"a", "", "b"},
		ImageURL:        "a",
		ReferenceImages: []string{"c", "b"},
	}
	assert.Equal(t, []string{"a", "b", "c"}, meta.InputRefs())
	assert.Empty(t, RequestMeta{}.InputRefs())
}
