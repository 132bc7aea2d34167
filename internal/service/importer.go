package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"datablocks/internal/domain"
	"datablocks/internal/format"
	"datablocks/internal/ingest"

	"github.com/fsnotify/fsnotify"
)

// ─────────────────────────────────────────────────────────────
// Importer — external data into new blocks
// ─────────────────────────────────────────────────────────────

// ImportJob describes one source to load into a block.
type ImportJob struct {
	SourceType string              `json:"sourceType"`
	Config     ingest.SourceConfig `json:"config"`
	CreateOptions
	// Alias, when set, is moved to each newly imported block.
	Alias string `json:"alias,omitempty"`
	// Transforms reshape the loaded records before the block is created.
	Transforms []ingest.TransformSpec `json:"transforms,omitempty"`
	// PersistTo, when set, gets a table realization of each new block
	// before the alias moves, so the alias outlives this process.
	PersistTo *domain.Storage `json:"persistTo,omitempty"`
}

// Importer loads sources into blocks, once or whenever a watched file
// changes. Each change produces a new block; the alias follows it.
type Importer struct {
	blocks   *BlockService
	manager  *DataBlockManager
	ec       *ExecutionContext
	running  keyedGuard
	debounce time.Duration

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
}

func NewImporter(ec *ExecutionContext, blocks *BlockService, manager *DataBlockManager) *Importer {
	return &Importer{ec: ec, blocks: blocks, manager: manager, debounce: 500 * time.Millisecond}
}

// Import loads job's source and creates a block from it.
func (im *Importer) Import(ctx context.Context, job ImportJob) (*domain.DataBlock, error) {
	pipeline, err := ingest.BuildPipeline(job.Transforms)
	if err != nil {
		return nil, err
	}
	payload, err := ingest.Load(ctx, job.SourceType, job.Config)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	if !pipeline.Empty() {
		wrapped, err := im.ec.Formats.Wrap(payload)
		if err != nil {
			return nil, err
		}
		records, err := im.ec.Formats.Collect(ctx, wrapped)
		if err != nil {
			return nil, fmt.Errorf("read source records: %w", err)
		}
		payload = pipeline.Apply(records)
	}
	block, _, err := im.blocks.CreateBlock(ctx, payload, job.CreateOptions)
	if err != nil {
		return nil, err
	}
	if job.PersistTo != nil {
		if _, err := im.manager.GetOrCreateRealization(ctx, block, format.DatabaseTable, *job.PersistTo); err != nil {
			return block, fmt.Errorf("persist imported block: %w", err)
		}
	}
	if job.Alias != "" {
		if _, err := im.manager.CreateAlias(ctx, block, job.Alias); err != nil {
			return block, err
		}
	}
	return block, nil
}

// Watch re-imports every file-backed job whenever its file is written.
// It replaces any previous watch.
func (im *Importer) Watch(ctx context.Context, jobs []ImportJob) error {
	im.Stop()

	pathToJob := make(map[string]ImportJob)
	for _, j := range jobs {
		p := j.Config.String("filePath")
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("bad path %q: %w", p, err)
		}
		pathToJob[abs] = j
	}
	if len(pathToJob) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	watchedDirs := make(map[string]bool)
	for abs := range pathToJob {
		dir := filepath.Dir(abs)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watch dir %q: %w", dir, err)
		}
		watchedDirs[dir] = true
	}

	watchCtx, cancel := context.WithCancel(ctx)
	im.mu.Lock()
	im.watcher = watcher
	im.watchCancel = cancel
	im.mu.Unlock()

	log := im.ec.Logger.WithField("action", "watch")
	go func() {
		timers := make(map[string]*time.Timer)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				abs, _ := filepath.Abs(event.Name)
				job, ok := pathToJob[abs]
				if !ok {
					continue
				}
				if t, exists := timers[abs]; exists {
					t.Stop()
				}
				timers[abs] = time.AfterFunc(im.debounce, func() {
					im.runWatched(watchCtx, abs, job)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("watcher error")
			}
		}
	}()

	log.WithField("files", len(pathToJob)).Info("watching import files")
	return nil
}

func (im *Importer) runWatched(ctx context.Context, path string, job ImportJob) {
	if !im.running.TryLock(path) {
		return
	}
	defer im.running.Unlock(path)

	log := im.ec.Logger.WithField("action", "watch_import").WithField("file", path)
	block, err := im.Import(ctx, job)
	if err != nil {
		log.WithError(err).Warn("re-import failed")
		return
	}
	log.WithField("block", block.ID()).Info("file re-imported")
}

// Stop tears down the watcher. Imports already running finish.
func (im *Importer) Stop() {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.watchCancel != nil {
		im.watchCancel()
		im.watchCancel = nil
	}
	if im.watcher != nil {
		im.watcher.Close()
		im.watcher = nil
	}
}

// WaitRunning blocks until running imports finish or ctx is cancelled.
func (im *Importer) WaitRunning(ctx context.Context) {
	im.running.WaitAll(ctx)
}
