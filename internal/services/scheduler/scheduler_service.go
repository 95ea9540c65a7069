package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/interfaces"
)

const settingsKeyPrefix = "scheduler:job:"

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name        string
	schedule    string
	description string
	handler     func() error
	enabled     bool
	cronID      cron.EntryID
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// jobSettings is the persisted slice of a job's state. Enabled state and the
// last-run timestamp survive restarts through the key/value store.
type jobSettings struct {
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	LastRun     *time.Time `json:"last_run,omitempty"`
}

// Service implements SchedulerService. Job execution is serialized through a
// global mutex: campaign and maintenance handlers never overlap.
type Service struct {
	cron   *cron.Cron
	logger arbor.ILogger
	kv     interfaces.KeyValueStorage

	jobMu    sync.Mutex // Protects jobs map and running flag
	globalMu sync.Mutex // Prevents concurrent job execution
	jobs     map[string]*jobEntry
	running  bool
}

// NewService creates a scheduler. The key/value store is optional; without
// it job settings simply do not persist across restarts.
func NewService(kv interfaces.KeyValueStorage, logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		kv:     kv,
		jobs:   make(map[string]*jobEntry),
	}
}

// Start begins the scheduler loop. Persisted settings are applied to the
// registered jobs first, so a job disabled before a restart stays disabled.
func (s *Service) Start() error {
	s.jobMu.Lock()
	if s.running {
		s.jobMu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	jobCount := len(s.jobs)
	s.jobMu.Unlock()

	if err := s.loadJobSettings(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load persisted job settings")
	}

	s.cron.Start()
	s.logger.Info().
		Int("jobs", jobCount).
		Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler. A handler already running finishes on its own.
func (s *Service) Stop() error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	s.cron.Stop()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// RegisterJob registers a new job with the scheduler
func (s *Service) RegisterJob(name string, schedule string, description string, handler func() error) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
		enabled:     true,
	}

	cronID, err := s.cron.AddFunc(schedule, func() { s.executeJob(name) })
	if err != nil {
		return fmt.Errorf("failed to add cron job %s: %w", name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")
	return nil
}

// TriggerJob manually triggers a job to run immediately
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s not found", name)
	}
	if entry.isRunning {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s is already running", name)
	}
	s.jobMu.Unlock()

	go s.executeJob(name)
	return nil
}

// EnableJob enables a disabled job
func (s *Service) EnableJob(name string) error {
	return s.setEnabled(name, true)
}

// DisableJob disables an enabled job
func (s *Service) DisableJob(name string) error {
	return s.setEnabled(name, false)
}

func (s *Service) setEnabled(name string, enabled bool) error {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s not found", name)
	}
	entry.enabled = enabled
	settings := settingsFromEntry(entry)
	s.jobMu.Unlock()

	s.persistJobSettings(name, settings)
	s.logger.Info().
		Str("job_name", name).
		Bool("enabled", enabled).
		Msg("Job state changed")
	return nil
}

// GetJobStatus returns the status of a specific job
func (s *Service) GetJobStatus(name string) (*interfaces.JobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return s.statusLocked(entry), nil
}

// GetAllJobStatuses returns all job statuses
func (s *Service) GetAllJobStatuses() map[string]*interfaces.JobStatus {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	statuses := make(map[string]*interfaces.JobStatus, len(s.jobs))
	for name, entry := range s.jobs {
		statuses[name] = s.statusLocked(entry)
	}
	return statuses
}

func (s *Service) statusLocked(entry *jobEntry) *interfaces.JobStatus {
	status := &interfaces.JobStatus{
		Name:        entry.name,
		Enabled:     entry.enabled,
		Schedule:    entry.schedule,
		Description: entry.description,
		LastRun:     entry.lastRun,
		IsRunning:   entry.isRunning,
		LastError:   entry.lastError,
	}
	if s.running {
		next := s.cron.Entry(entry.cronID).Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// executeJob runs one job under the global execution mutex with panic
// recovery. Disabled jobs are skipped even when cron fires them.
func (s *Service) executeJob(name string) {
	var settings jobSettings

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in job execution")

			s.jobMu.Lock()
			if entry, exists := s.jobs[name]; exists {
				entry.isRunning = false
				entry.lastError = fmt.Sprintf("panic: %v", r)
				settings = settingsFromEntry(entry)
			}
			s.jobMu.Unlock()

			s.persistJobSettings(name, settings)
		}
	}()

	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return
	}
	if !entry.enabled {
		s.jobMu.Unlock()
		s.logger.Debug().Str("job_name", name).Msg("Job disabled, skipping")
		return
	}
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	s.logger.Info().Str("job_name", name).Msg("Job execution started")
	started := time.Now()
	err := handler()
	completed := time.Now()

	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &completed
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	settings = settingsFromEntry(entry)
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Str("duration", time.Since(started).String()).
			Msg("Job execution failed")
	} else {
		s.logger.Info().
			Str("job_name", name).
			Str("duration", time.Since(started).String()).
			Msg("Job execution completed")
	}

	s.persistJobSettings(name, settings)
}

func settingsFromEntry(entry *jobEntry) jobSettings {
	return jobSettings{
		Schedule:    entry.schedule,
		Description: entry.description,
		Enabled:     entry.enabled,
		LastRun:     entry.lastRun,
	}
}

// persistJobSettings writes a job's settings to the key/value store.
// Persistence failures are logged, never escalated.
func (s *Service) persistJobSettings(name string, settings jobSettings) {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(settings)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_name", name).Msg("Failed to encode job settings")
		return
	}
	if err := s.kv.Set(context.Background(), settingsKeyPrefix+name, string(data)); err != nil {
		s.logger.Warn().Err(err).Str("job_name", name).Msg("Failed to persist job settings")
	}
}

// loadJobSettings applies persisted settings to registered jobs. Settings
// for jobs no longer registered are ignored.
func (s *Service) loadJobSettings() error {
	if s.kv == nil {
		return nil
	}
	pairs, err := s.kv.ListByPrefix(context.Background(), settingsKeyPrefix)
	if err != nil {
		return fmt.Errorf("list job settings: %w", err)
	}

	loaded := 0
	for _, pair := range pairs {
		name := pair.Key[len(settingsKeyPrefix):]
		var settings jobSettings
		if err := json.Unmarshal([]byte(pair.Value), &settings); err != nil {
			s.logger.Warn().Err(err).Str("job_name", name).Msg("Failed to decode job settings")
			continue
		}

		s.jobMu.Lock()
		if entry, exists := s.jobs[name]; exists {
			entry.enabled = settings.Enabled
			entry.lastRun = settings.LastRun
			loaded++
		}
		s.jobMu.Unlock()
	}

	if loaded > 0 {
		s.logger.Info().Int("count", loaded).Msg("Job settings restored")
	}
	return nil
}

var _ interfaces.SchedulerService = (*Service)(nil)
