// agora/utils/utils.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var BackupDir string

// bannerMu guards the banner file, which staff edit while pages read it.
var bannerMu sync.RWMutex

// ReadBanner returns the site notice, or "" when none is set.
func ReadBanner(path string) string {
	bannerMu.RLock()
	defer bannerMu.RUnlock()
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WriteBanner replaces the site notice. An empty message clears it.
func WriteBanner(path, message string) error {
	bannerMu.Lock()
	defer bannerMu.Unlock()
	message = strings.TrimSpace(message)
	if message == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create banner directory: %w", err)
	}
	return os.WriteFile(path, []byte(message), 0644)
}
