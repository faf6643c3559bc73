package archiver

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gparchiver/pkg/logger"
	"gparchiver/pkg/photos"
)

// NewDebugDump returns a photos.PageDump that writes each raw listing page
// as an indented JSON file under dir. Dumps are write-only diagnostics and
// are never read back; a dump failure is logged and otherwise ignored.
func NewDebugDump(dir string, log logger.Logger) photos.PageDump {
	if log == nil {
		log = logger.GetLogger()
	}

	return func(name string, page interface{}) {
		data, err := json.MarshalIndent(page, "", "  ")
		if err != nil {
			log.WithError(err).Warn("failed to marshal debug page")
			return
		}

		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			log.WithError(err).WithField("path", path).Warn("failed to write debug page")
		}
	}
}
