package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/repository"
	"github.com/MrSnakeDoc/marks/internal/sources/homepage"
)

// ImportResult summarizes one seed import run.
type ImportResult struct {
	Created int
	Skipped int // URL already stored
	Failed  int
}

// ImportStatus is the last run as reported by readiness checks.
type ImportStatus struct {
	LastRun time.Time
	Last    ImportResult
	Err     string
}

// SeedImporter periodically imports a Homepage bookmarks.yaml into the
// repository. Each URL is created at most once; existing bookmarks are
// never modified, so user edits survive re-imports.
type SeedImporter struct {
	loader        *homepage.Loader
	mapper        *homepage.Mapper
	repo          repository.Repository
	metrics       *metrics.Metrics
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}

	mu     sync.Mutex
	status ImportStatus
}

// NewSeedImporter creates a new seed importer
func NewSeedImporter(
	seedFile string,
	repo repository.Repository,
	m *metrics.Metrics,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *SeedImporter {
	return &SeedImporter{
		loader:        homepage.NewLoader(seedFile),
		mapper:        homepage.NewMapper(),
		repo:          repo,
		metrics:       m,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs one import, then re-imports on every tick or manual trigger
func (si *SeedImporter) Start(ctx context.Context) error {
	// Import immediately on start
	if _, err := si.Import(ctx); err != nil {
		return fmt.Errorf("initial seed import failed: %w", err)
	}

	ticker := time.NewTicker(si.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				si.run(ctx)
			case <-si.manualTrigger:
				si.logger.Info("manual seed import triggered")
				si.run(ctx)
			case <-si.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the importer
func (si *SeedImporter) Stop() {
	close(si.stopCh)
}

// Status returns the outcome of the last run
func (si *SeedImporter) Status() ImportStatus {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.status
}

func (si *SeedImporter) run(ctx context.Context) {
	if _, err := si.Import(ctx); err != nil {
		si.logger.Error("failed to import seed bookmarks", logger.Error(err))
	}
}

// Import loads the seed file and creates every bookmark whose URL is not stored yet
func (si *SeedImporter) Import(ctx context.Context) (ImportResult, error) {
	si.logger.Info("importing seed bookmarks",
		logger.String("file", si.loader.Path()))

	res, err := si.importOnce(ctx)
	si.record(res, err)
	if err != nil {
		return res, err
	}

	si.logger.Info("seed import completed",
		logger.Int("created", res.Created),
		logger.Int("skipped", res.Skipped),
		logger.Int("failed", res.Failed))
	return res, nil
}

func (si *SeedImporter) importOnce(ctx context.Context) (ImportResult, error) {
	var res ImportResult

	config, err := si.loader.Load()
	if err != nil {
		return res, fmt.Errorf("failed to load seed file: %w", err)
	}

	payloads, err := si.mapper.MapBookmarks(config)
	if err != nil {
		return res, fmt.Errorf("failed to map seed bookmarks: %w", err)
	}

	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, exists, err := si.repo.FindByURL(ctx, p.URL)
		if err != nil {
			return res, fmt.Errorf("failed to look up %s: %w", p.URL, err)
		}
		if exists {
			res.Skipped++
			continue
		}

		if _, err := si.repo.Create(ctx, p); err != nil {
			si.logger.Warn("failed to create seed bookmark",
				logger.String("url", p.URL),
				logger.Error(err))
			res.Failed++
			continue
		}
		res.Created++
	}

	return res, nil
}

func (si *SeedImporter) record(res ImportResult, err error) {
	si.mu.Lock()
	si.status = ImportStatus{LastRun: time.Now(), Last: res}
	if err != nil {
		si.status.Err = err.Error()
	}
	si.mu.Unlock()

	if si.metrics == nil {
		return
	}
	si.metrics.SeedImported.Add(float64(res.Created))
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	si.metrics.SeedRuns.WithLabelValues(outcome).Inc()
}
