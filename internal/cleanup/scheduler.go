// Package cleanup prunes aged recording files from the recordings directory
// on a fixed schedule.
package cleanup

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler handles retention of saved recording files.
type Scheduler struct {
	recordingsDir   string
	intervalMinutes int
	maxAgeHours     int
	log             *logrus.Logger
	stopChan        chan struct{}
}

// NewScheduler creates a new retention scheduler over the recordings directory.
func NewScheduler(recordingsDir string, intervalMinutes, maxAgeHours int, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		recordingsDir:   recordingsDir,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		log:             log,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the retention scheduler. An initial sweep runs immediately.
func (s *Scheduler) Start() {
	s.pruneOldRecordings()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.pruneOldRecordings()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.log.Infof("retention scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the retention scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.log.Info("retention scheduler stopped")
}

// pruneOldRecordings removes recording files older than maxAgeHours.
func (s *Scheduler) pruneOldRecordings() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.recordingsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age > maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				s.log.Warnf("failed to delete old recording %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warnf("error during retention sweep: %v", err)
	}

	if deletedCount > 0 {
		s.log.Infof("retention sweep complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// EnsureDirExists creates the recordings directory if it doesn't exist.
func EnsureDirExists(dir string) error {
	return os.MkdirAll(dir, 0755)
}
