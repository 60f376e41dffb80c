package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const latestLogName = "latest.log"

// OpenRunLog prepares the per-run log sink under dir.
//
// A pre-existing latest.log from an earlier run is renamed to a
// timestamp-suffixed name before a fresh latest.log is created. A name
// collision on the timestamp is disambiguated with an incrementing
// integer suffix, so starting twice in the same second never overwrites
// an earlier run's log.
func OpenRunLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	latest := filepath.Join(dir, latestLogName)
	if _, err := os.Stat(latest); err == nil {
		if err := rotateLatest(dir, latest); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(latest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	return file, nil
}

// rotateLatest renames latest.log to an archived, collision-free name.
func rotateLatest(dir string, latest string) error {
	stamp := time.Now().Format("20060102-150405")
	target := filepath.Join(dir, fmt.Sprintf("run-%s.log", stamp))

	for n := 1; ; n++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(dir, fmt.Sprintf("run-%s-%d.log", stamp, n))
	}

	if err := os.Rename(latest, target); err != nil {
		return fmt.Errorf("rotate previous run log: %w", err)
	}

	return nil
}
