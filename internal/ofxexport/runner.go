package ofxexport

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bcaldwell/bankops/internal/config"
	"github.com/bcaldwell/bankops/internal/pluggy"
	"k8s.io/klog"
)

type ExportOFXRunner struct{}

// Run renders statement files for every configured item covering the current
// month. One item's failure does not abort the others.
func (ExportOFXRunner) Run() error {
	secrets := config.CurrentPluggySecrets()
	if secrets.ClientID == "" || secrets.ClientSecret == "" {
		return fmt.Errorf("pluggy credentials are not configured")
	}

	conf := config.CurrentExportConfig()
	if len(conf.ItemIDs) == 0 {
		return fmt.Errorf("no items configured for export")
	}

	outputDir := conf.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	client := pluggy.NewClient(secrets.ClientID, secrets.ClientSecret)

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	failures := 0

	for _, itemID := range conf.ItemIDs {
		files, err := BuildFiles(client, itemID, start, end)
		if err != nil {
			klog.Errorf("Failed to export item %s: %v", itemID, err)
			failures++

			continue
		}

		for _, file := range files {
			path := filepath.Join(outputDir, file.SuggestedFileName())

			err = os.WriteFile(path, []byte(file.Render()), 0o644)
			if err != nil {
				klog.Errorf("Failed to write %s: %v", path, err)
				failures++

				continue
			}

			klog.Infof("Wrote %s", path)
		}
	}

	if failures > 0 {
		return fmt.Errorf("export finished with %d failures", failures)
	}

	return nil
}
