// Package worker runs background jobs alongside the HTTP surface.
package worker

import (
	"context"
	"time"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/in"
	"mailsense_server/pkg/logger"
	"mailsense_server/pkg/ratelimit"
)

// scanDebounceKey matches the API trigger's key so a manual scan and a
// scheduled scan cannot overlap.
const scanDebounceKey = "mail:scan"

// ScanScheduler triggers a full category scan on a fixed interval.
type ScanScheduler struct {
	pipeline in.PipelineService
	guard    *ratelimit.Debouncer
	interval time.Duration
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScanScheduler creates a scan scheduler.
func NewScanScheduler(
	pipeline in.PipelineService,
	guard *ratelimit.Debouncer,
	interval time.Duration,
	timeout time.Duration,
) *ScanScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ScanScheduler{
		pipeline: pipeline,
		guard:    guard,
		interval: interval,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the scheduler loop.
func (s *ScanScheduler) Start() {
	logger.Info("[ScanScheduler] Starting with interval %v", s.interval)
	go s.run()
}

// Stop stops the scheduler.
func (s *ScanScheduler) Stop() {
	logger.Info("[ScanScheduler] Stopping...")
	s.cancel()
}

func (s *ScanScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[ScanScheduler] Stopped")
			return
		case <-ticker.C:
			s.runScan()
		}
	}
}

func (s *ScanScheduler) runScan() {
	if s.guard != nil {
		if s.guard.IsDuplicate(s.ctx, scanDebounceKey) {
			logger.Info("[ScanScheduler] Scan already running or just triggered, skipping tick")
			return
		}
		s.guard.Mark(s.ctx, scanDebounceKey)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	result, err := s.pipeline.ProcessAll(ctx, domain.TriggerScheduler)
	if err != nil {
		logger.Error("[ScanScheduler] Scheduled scan failed: %v", err)
		return
	}

	logger.WithFields(map[string]any{
		"run_id":    result.RunID,
		"processed": result.ProcessedCount,
		"labeled":   result.LabeledCount,
		"errors":    result.ErrorCount,
	}).Info("[ScanScheduler] Scheduled scan completed")
}
