// Package blob persists generated and uploaded images and returns public URLs.
package blob

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var ErrEmptyPayload = errors.New("empty image payload")

type Store interface {
	// SaveImage stores a base64 payload (bare or data URL) and returns its URL.
	SaveImage(ctx context.Context, data string) (string, error)
	// SaveInput stores inline data URLs. Already stored and remote URLs pass through unchanged.
	SaveInput(ctx context.Context, ref string) (string, error)
}

// putter is the driver specific part of a Store.
type putter interface {
	put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// owns reports whether url already points into this store.
	owns(url string) bool
}

type imageStore struct {
	driver putter
}

func (s *imageStore) SaveImage(ctx context.Context, data string) (string, error) {
	raw, err := DecodeImage(data)
	if err != nil {
		return "", err
	}
	mtype := mimetype.Detect(raw)
	ext := mtype.Extension()
	contentType := mtype.String()
	if !strings.HasPrefix(contentType, "image/") {
		ext, contentType = ".png", "image/png"
	}
	return s.driver.put(ctx, uuid.NewString()+ext, raw, contentType)
}

func (s *imageStore) SaveInput(ctx context.Context, ref string) (string, error) {
	if ref == "" || s.driver.owns(ref) || !strings.HasPrefix(ref, "data:image") {
		return ref, nil
	}
	return s.SaveImage(ctx, ref)
}

// DecodeImage accepts "data:<mime>;base64,<payload>" or a bare base64 payload.
func DecodeImage(data string) ([]byte, error) {
	payload := data
	if idx := strings.Index(data, ";base64,"); idx >= 0 {
		payload = data[idx+len(";base64,"):]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients strip padding.
		if raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	return raw, nil
}
