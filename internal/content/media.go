package content

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// mediaExts are the file types carried from the content tree into the
// published images directory.
var mediaExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
}

// copyMedia copies every media file under the content tree to
// {publish}/images, keeping subdirectories and overwriting what is there.
func (j *Injector) copyMedia() (int, error) {
	copied := 0
	imagesDir := filepath.Join(j.cfg.PublishDir, "images")
	err := filepath.WalkDir(j.cfg.ContentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !mediaExts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		rel, err := filepath.Rel(j.cfg.ContentDir, p)
		if err != nil {
			return err
		}
		target := filepath.Join(imagesDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		data, err := os.ReadFile(p) // #nosec G304 -- path comes from walking the content tree
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return err
		}
		j.logger.Debug("Copied media", zap.String("path", filepath.ToSlash(rel)))
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy media: %w", err)
	}
	if copied > 0 {
		j.logger.Info("Copied media files", zap.Int("count", copied))
	}
	return copied, nil
}
