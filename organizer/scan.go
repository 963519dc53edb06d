package organizer

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScanRequest holds per-scan settings.
type ScanRequest struct {
	// Append keeps the existing results instead of clearing them first.
	Append bool
}

// ScanProgress is a live view of a running scan.
type ScanProgress struct {
	ID       string `json:"id"`
	Root     string `json:"root"`
	Files    int64  `json:"files"`
	Warnings int64  `json:"warnings"`
	Elapsed  string `json:"elapsed"`
}

// ScanSummary describes a finished scan.
type ScanSummary struct {
	ID        string        `json:"id"`
	Root      string        `json:"root"`
	Files     int64         `json:"files"`
	Warnings  int64         `json:"warnings"`
	Duration  time.Duration `json:"duration"`
	Cancelled bool          `json:"cancelled"`
	Err       error         `json:"-"`
}

// ScanHandle controls one scan started by StartScan.
type ScanHandle struct {
	ID   string
	Root string

	started  time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	files    atomic.Int64
	warnings atomic.Int64
	summary  ScanSummary
}

// Cancel stops the scan. Results gathered so far stay in the store.
func (h *ScanHandle) Cancel() {
	h.cancel()
}

// Done is closed when the scan has finished.
func (h *ScanHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the scan has finished and returns its summary.
func (h *ScanHandle) Wait() ScanSummary {
	<-h.done
	return h.summary
}

// Progress returns the counters of the scan so far.
func (h *ScanHandle) Progress() ScanProgress {
	return ScanProgress{
		ID:       h.ID,
		Root:     h.Root,
		Files:    h.files.Load(),
		Warnings: h.warnings.Load(),
		Elapsed:  time.Since(h.started).Round(time.Millisecond).String(),
	}
}

func (h *ScanHandle) finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// StartScan validates root and starts scanning it in the background.
// A scan still running is cancelled and waited for first, so at most one
// scan writes to the store at a time. Unless req.Append is set the store is
// cleared before the new scan begins.
func (o *Organizer) StartScan(ctx context.Context, root string, req ScanRequest) (*ScanHandle, error) {
	rootDir, err := scanner.ResolveRoot(root)
	if err != nil {
		o.logger.WithError(err).WithField("root", root).Warn("scan rejected")
		return nil, err
	}

	o.scanMu.Lock()
	// scanMu is released while waiting so listeners of the cancelled scan can
	// still call Status or Root. Another StartScan may win the race meanwhile,
	// so the active scan is checked again after each wait.
	for previous := o.active; previous != nil && !previous.finished(); previous = o.active {
		o.logger.WithField("scan", previous.ID).Info("cancelling previous scan")
		previous.Cancel()
		o.scanMu.Unlock()
		<-previous.done
		o.scanMu.Lock()
	}
	defer o.scanMu.Unlock()

	if !req.Append {
		o.Clear()
	}

	scanCtx, cancel := context.WithCancel(ctx)
	handle := &ScanHandle{
		ID:      uuid.NewString(),
		Root:    rootDir,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	o.active = handle
	o.lastRoot = rootDir

	go o.runScan(scanCtx, handle)
	return handle, nil
}

// Scan runs a scan to completion.
func (o *Organizer) Scan(ctx context.Context, root string, req ScanRequest) (ScanSummary, error) {
	handle, err := o.StartScan(ctx, root, req)
	if err != nil {
		return ScanSummary{}, err
	}
	summary := handle.Wait()
	return summary, summary.Err
}

// CancelScan stops the running scan, if any, and reports whether there was one.
func (o *Organizer) CancelScan() bool {
	o.scanMu.Lock()
	active := o.active
	o.scanMu.Unlock()

	if active == nil || active.finished() {
		return false
	}
	active.Cancel()
	<-active.done
	return true
}

// Root returns the root of the latest scan.
func (o *Organizer) Root() string {
	o.scanMu.Lock()
	defer o.scanMu.Unlock()
	return o.lastRoot
}

func (o *Organizer) runScan(ctx context.Context, handle *ScanHandle) {
	defer close(handle.done)
	defer handle.cancel()

	logger := o.logger.WithFields(logrus.Fields{"scan": handle.ID, "root": handle.Root})
	logger.Info("scan started")
	o.listeners.emit(Event{Type: EventScanStarted, ScanID: handle.ID, Root: handle.Root})

	options := o.options.Scan
	if o.options.NewIgnore != nil {
		options.Ignore = o.options.NewIgnore(handle.Root)
	}
	options.OnWarning = func(w scanner.Warning) {
		handle.warnings.Add(1)
		o.listeners.emit(Event{Type: EventWarning, ScanID: handle.ID, Path: w.Path, Message: w.Err.Error()})
	}
	walker := scanner.New(options, logger)

	descriptors := make(chan scanner.Descriptor, o.options.BatchSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(descriptors)
		return walker.Walk(gctx, handle.Root, func(d scanner.Descriptor) error {
			select {
			case descriptors <- d:
				return nil
			case <-gctx.Done():
				return fs.SkipAll
			}
		})
	})

	g.Go(func() error {
		batch := make([]scanner.Descriptor, 0, o.options.BatchSize)
		for d := range descriptors {
			batch = append(batch, d)
			if len(batch) >= o.options.BatchSize || len(descriptors) == 0 {
				o.storeBatch(handle, batch, logger)
				batch = batch[:0]
			}
		}
		o.storeBatch(handle, batch, logger)
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	handle.summary = ScanSummary{
		ID:        handle.ID,
		Root:      handle.Root,
		Files:     handle.files.Load(),
		Warnings:  handle.warnings.Load(),
		Duration:  time.Since(handle.started),
		Cancelled: ctx.Err() != nil,
		Err:       err,
	}

	entry := logger.WithFields(logrus.Fields{
		"files":     handle.summary.Files,
		"warnings":  handle.summary.Warnings,
		"duration":  handle.summary.Duration.Round(time.Millisecond),
		"cancelled": handle.summary.Cancelled,
	})
	if err != nil {
		entry.WithError(err).Error("scan failed")
	} else {
		entry.Info("scan finished")
	}

	summary := handle.summary
	o.listeners.emit(Event{Type: EventScanFinished, ScanID: handle.ID, Root: handle.Root, Summary: &summary})
}

// storeBatch classifies and stores a batch while holding syncMu, so a
// concurrent Sync either sees the batch and reclassifies it or runs first and
// the batch is classified with the index it built. Records merge by path, so
// a file already stored by ApplyChange during the scan is replaced, not repeated.
func (o *Organizer) storeBatch(handle *ScanHandle, batch []scanner.Descriptor, logger *logrus.Entry) {
	if len(batch) == 0 {
		return
	}

	o.syncMu.Lock()
	// On failure the previous index stays in place and is used below.
	_ = o.syncLocked()
	records := classify.ClassifyAll(batch, o.idx.Load())
	o.store.Merge(records...)
	if o.paths != nil {
		if err := o.paths.Add(records...); err != nil {
			logger.WithError(err).Warn("failed to index scanned paths")
		}
	}
	o.syncMu.Unlock()

	for i := range records {
		handle.files.Add(1)
		o.listeners.emit(Event{Type: EventFile, ScanID: handle.ID, Path: records[i].Path, Record: &records[i]})
	}
}
