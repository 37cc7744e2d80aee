package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type localDriver struct {
	dir          string
	publicPrefix string
}

// NewLocalStore writes files under dir and serves them from publicPrefix (e.g. "/uploads").
func NewLocalStore(dir, publicPrefix string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &imageStore{driver: &localDriver{
		dir:          dir,
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
	}}, nil
}

func (d *localDriver) put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return d.publicPrefix + "/" + name, nil
}

func (d *localDriver) owns(url string) bool {
	return strings.HasPrefix(url, d.publicPrefix+"/")
}
