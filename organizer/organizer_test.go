package organizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/index"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeFiles(t *testing.T, dir string, count int, pattern string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for i := 0; i < count; i++ {
		name := filepath.Join(dir, fmt.Sprintf(pattern, i))
		require.NoError(t, os.WriteFile(name, nil, 0644))
	}
}

func newOrganizer(t *testing.T, registry *category.Registry, options Options) *Organizer {
	t.Helper()
	if options.Logger == nil {
		options.Logger = quietLogger()
	}
	return New(registry, results.NewStore(), options)
}

func imagesDocs(t *testing.T) *category.Registry {
	t.Helper()
	r := category.NewRegistry()
	require.NoError(t, r.Add("Images", []string{"png", "jpg"}))
	require.NoError(t, r.Add("Docs", []string{"pdf"}))
	return r
}

func names(records []classify.Record) []string {
	out := make([]string, len(records))
	for i, record := range records {
		out[i] = record.RelativePath
	}
	return out
}

func categoriesOf(records []classify.Record) []string {
	out := make([]string, len(records))
	for i, record := range records {
		out[i] = record.Category
	}
	return out
}

func Test_Organizer_Scan_ClassifiesByExtension(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "png")
	writeFile(t, filepath.Join(tmpDir, "b.PDF"), "pdf")
	writeFile(t, filepath.Join(tmpDir, "c.txt"), "txt")
	writeFile(t, filepath.Join(tmpDir, "Makefile"), "all:")

	org := newOrganizer(t, imagesDocs(t), Options{})
	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.Files)
	assert.False(t, summary.Cancelled)
	records := org.Store().Snapshot()
	assert.Equal(t, []string{"Makefile", "a.png", "b.PDF", "c.txt"}, names(records))
	assert.Equal(t, []string{category.Uncategorized, "Images", "Docs", category.Uncategorized}, categoriesOf(records))
}

func Test_Organizer_UpdateExtensions_ReclassifiesWithoutDisk(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "png")
	writeFile(t, filepath.Join(tmpDir, "c.txt"), "txt")

	org := newOrganizer(t, imagesDocs(t), Options{})
	_, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	// Results must come from the stored descriptors, not a rescan.
	require.NoError(t, os.RemoveAll(tmpDir))

	var reclassified []int
	unsubscribe := org.Subscribe(func(e Event) {
		if e.Type == EventReclassified {
			reclassified = append(reclassified, e.Changed)
		}
	})
	defer unsubscribe()

	require.NoError(t, org.UpdateExtensions("Docs", []string{".TXT"}, nil))

	records := org.Store().Snapshot()
	assert.Equal(t, []string{"a.png", "c.txt"}, names(records))
	assert.Equal(t, []string{"Images", "Docs"}, categoriesOf(records))
	assert.Equal(t, []int{1}, reclassified)
}

func Test_Organizer_RemoveCategory_ReturnsFilesToUncategorized(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "png")

	org := newOrganizer(t, imagesDocs(t), Options{})
	_, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	require.NoError(t, org.RemoveCategory("images"))
	assert.Equal(t, []string{category.Uncategorized}, categoriesOf(org.Store().Snapshot()))

	require.NoError(t, org.AddCategory("Pictures", []string{"png"}))
	assert.Equal(t, []string{"Pictures"}, categoriesOf(org.Store().Snapshot()))
}

func Test_Organizer_AddCategory_ConflictLeavesResultsAlone(t *testing.T) {
	org := newOrganizer(t, imagesDocs(t), Options{})
	before := org.Status()

	err := org.AddCategory("Pictures", []string{"jpg"})
	require.ErrorIs(t, err, category.ErrExtensionConflict)

	after := org.Status()
	assert.Equal(t, before.RegistryVersion, after.RegistryVersion)
	assert.Equal(t, before.IndexVersion, after.IndexVersion)
}

func Test_Organizer_Scan_InvalidRoot(t *testing.T) {
	org := newOrganizer(t, imagesDocs(t), Options{})

	_, err := org.StartScan(context.Background(), filepath.Join(t.TempDir(), "missing"), ScanRequest{})
	require.ErrorIs(t, err, scanner.ErrInvalidRoot)

	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	_, err = org.StartScan(context.Background(), file, ScanRequest{})
	require.ErrorIs(t, err, scanner.ErrInvalidRoot)
	assert.Empty(t, org.Root())
}

func Test_Organizer_Scan_CancelStopsEarly(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, 10000, "file%05d.dat")

	org := newOrganizer(t, imagesDocs(t), Options{BatchSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen atomic.Int64
	org.Subscribe(func(e Event) {
		if e.Type == EventFile && seen.Add(1) == 5 {
			cancel()
		}
	})

	summary, err := org.Scan(ctx, tmpDir, ScanRequest{})
	require.NoError(t, err)
	assert.True(t, summary.Cancelled)
	assert.GreaterOrEqual(t, summary.Files, int64(5))
	assert.LessOrEqual(t, summary.Files, int64(20))
	assert.Equal(t, int(summary.Files), org.Store().Len())
}

func Test_Organizer_Scan_UnreadableDirectoryWarns(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, 9, "file%d.txt")
	locked := filepath.Join(tmpDir, "locked")
	writeFile(t, filepath.Join(locked, "hidden.txt"), "x")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	org := newOrganizer(t, imagesDocs(t), Options{})
	var warnings []string
	var mu sync.Mutex
	org.Subscribe(func(e Event) {
		if e.Type == EventWarning {
			mu.Lock()
			warnings = append(warnings, filepath.Base(e.Path))
			mu.Unlock()
		}
	})

	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(9), summary.Files)
	assert.Equal(t, int64(1), summary.Warnings)
	assert.Equal(t, []string{"locked"}, warnings)
}

func Test_Organizer_Scan_BrokenEntryWarnsAndContinues(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, 9, "file%d.txt")
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "gone"), filepath.Join(tmpDir, "dangling.png")))

	org := newOrganizer(t, imagesDocs(t), Options{Scan: scanner.Options{FollowSymlinks: true}})
	var warnings []string
	var mu sync.Mutex
	org.Subscribe(func(e Event) {
		if e.Type == EventWarning {
			mu.Lock()
			warnings = append(warnings, filepath.Base(e.Path))
			mu.Unlock()
		}
	})

	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(9), summary.Files)
	assert.Equal(t, int64(1), summary.Warnings)
	assert.Equal(t, 9, org.Store().Len())
	assert.Equal(t, []string{"dangling.png"}, warnings)
}

func Test_Organizer_StartScan_CancelsPreviousScan(t *testing.T) {
	big := filepath.Join(t.TempDir(), "big")
	small := filepath.Join(t.TempDir(), "small")
	writeFiles(t, big, 500, "big%03d.png")
	writeFiles(t, small, 3, "small%d.pdf")

	org := newOrganizer(t, imagesDocs(t), Options{BatchSize: 1})
	started := make(chan struct{})
	var once sync.Once
	org.Subscribe(func(e Event) {
		if e.Type == EventFile && strings.HasPrefix(filepath.Base(e.Path), "big") {
			once.Do(func() { close(started) })
			time.Sleep(2 * time.Millisecond)
		}
	})

	first, err := org.StartScan(context.Background(), big, ScanRequest{})
	require.NoError(t, err)
	<-started

	second, err := org.StartScan(context.Background(), small, ScanRequest{})
	require.NoError(t, err)

	firstSummary := first.Wait()
	assert.True(t, firstSummary.Cancelled)
	assert.Less(t, firstSummary.Files, int64(500))

	secondSummary := second.Wait()
	require.NoError(t, secondSummary.Err)
	assert.Equal(t, int64(3), secondSummary.Files)

	records := org.Store().Snapshot()
	assert.Equal(t, []string{"small0.pdf", "small1.pdf", "small2.pdf"}, names(records))
	assert.Equal(t, []string{"Docs", "Docs", "Docs"}, categoriesOf(records))
	assert.Equal(t, second.Root, org.Root())
}

func Test_Organizer_StartScan_ListenerMayReadStatusWhileCancelled(t *testing.T) {
	big := filepath.Join(t.TempDir(), "big")
	small := filepath.Join(t.TempDir(), "small")
	writeFiles(t, big, 300, "big%03d.png")
	writeFiles(t, small, 2, "small%d.pdf")

	org := newOrganizer(t, imagesDocs(t), Options{BatchSize: 1})
	started := make(chan struct{})
	var once sync.Once
	org.Subscribe(func(e Event) {
		if e.Type == EventFile {
			_ = org.Status()
			_ = org.Root()
			once.Do(func() { close(started) })
			time.Sleep(time.Millisecond)
		}
	})

	first, err := org.StartScan(context.Background(), big, ScanRequest{})
	require.NoError(t, err)
	<-started

	done := make(chan ScanSummary, 1)
	go func() {
		summary, _ := org.Scan(context.Background(), small, ScanRequest{})
		done <- summary
	}()

	select {
	case summary := <-done:
		assert.Equal(t, int64(2), summary.Files)
	case <-time.After(10 * time.Second):
		t.Fatal("second scan did not finish")
	}
	assert.True(t, first.Wait().Cancelled)
}

func Test_Organizer_Scan_AppendKeepsResults(t *testing.T) {
	one := t.TempDir()
	two := t.TempDir()
	writeFile(t, filepath.Join(one, "a.png"), "a")
	writeFile(t, filepath.Join(two, "b.pdf"), "b")

	org := newOrganizer(t, imagesDocs(t), Options{})
	_, err := org.Scan(context.Background(), one, ScanRequest{})
	require.NoError(t, err)
	_, err = org.Scan(context.Background(), two, ScanRequest{Append: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.pdf"}, names(org.Store().Snapshot()))

	_, err = org.Scan(context.Background(), two, ScanRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdf"}, names(org.Store().Snapshot()))
}

func Test_Organizer_ConcurrentMutationDuringScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, 100, "img%03d.png")
	writeFiles(t, tmpDir, 100, "anim%03d.gif")
	writeFiles(t, tmpDir, 100, "scratch%03d.tmp")

	registry := imagesDocs(t)
	org := newOrganizer(t, registry, Options{BatchSize: 8})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = org.UpdateExtensions("Images", []string{"gif"}, nil)
			_ = org.AddCategory("Temp", []string{"tmp", "gif"})
			_ = org.UpdateExtensions("Images", nil, []string{"gif"})
			_ = org.AddCategory("Temp", []string{"tmp"})
			_ = org.RemoveCategory("Temp")
		}
	}()

	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	close(done)
	wg.Wait()
	require.NoError(t, err)
	require.NoError(t, org.Sync())

	assert.Equal(t, int64(300), summary.Files)
	_, err = category.BuildIndex(registry.Snapshot())
	require.NoError(t, err)

	idx := org.Index()
	for _, record := range org.Store().Snapshot() {
		assert.Equal(t, idx.Resolve(record.Extension), record.Category, record.RelativePath)
	}
}

func Test_Organizer_Run_SyncsDirectRegistryChanges(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "song.mp3"), "x")

	registry := imagesDocs(t)
	org := newOrganizer(t, registry, Options{})
	_, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go org.Run(ctx)

	// Toggle until Run has subscribed and picked a change up.
	require.Eventually(t, func() bool {
		_ = registry.UpdateExtensions("Docs", nil, []string{"mp3"})
		_ = registry.UpdateExtensions("Docs", []string{"mp3"}, nil)
		time.Sleep(5 * time.Millisecond)
		return categoriesOf(org.Store().Snapshot())[0] == "Docs"
	}, 2*time.Second, 10*time.Millisecond)
}

func Test_Organizer_Search(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "holiday", "beach.png"), "x")
	writeFile(t, filepath.Join(tmpDir, "work", "report.pdf"), "x")

	pathIndex, err := index.NewPathIndex()
	require.NoError(t, err)
	defer pathIndex.Close()

	org := newOrganizer(t, imagesDocs(t), Options{PathIndex: pathIndex})
	_, err = org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	found, err := org.Search(index.SearchOptions{Query: "beach"})
	require.NoError(t, err)
	assert.Equal(t, []string{"holiday/beach.png"}, names(found))

	found, err = org.Search(index.SearchOptions{Category: "docs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"work/report.pdf"}, names(found))

	org.Clear()
	found, err = org.Search(index.SearchOptions{Query: "beach"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func Test_Organizer_Search_Disabled(t *testing.T) {
	org := newOrganizer(t, imagesDocs(t), Options{})
	_, err := org.Search(index.SearchOptions{Query: "x"})
	require.Error(t, err)
}

func Test_Organizer_ApplyChange(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "png")

	org := newOrganizer(t, imagesDocs(t), Options{})
	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)
	rootDir := summary.Root

	created := filepath.Join(rootDir, "sub", "new.pdf")
	writeFile(t, created, "pdf")
	org.ApplyChange(rootDir, created)
	assert.Equal(t, []string{"a.png", "sub/new.pdf"}, names(org.Store().Snapshot()))

	record, ok := org.Store().Get(created)
	require.True(t, ok)
	assert.Equal(t, "Docs", record.Category)

	require.NoError(t, os.RemoveAll(filepath.Join(rootDir, "sub")))
	org.ApplyChange(rootDir, filepath.Join(rootDir, "sub"))
	assert.Equal(t, []string{"a.png"}, names(org.Store().Snapshot()))

	other := t.TempDir()
	writeFile(t, filepath.Join(other, "x.png"), "x")
	org.ApplyChange(other, filepath.Join(other, "x.png"))
	assert.Equal(t, 1, org.Store().Len())
}

func Test_Organizer_ApplyChange_DuringScanKeepsOnePerPath(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, 200, "f%03d.png")

	org := newOrganizer(t, imagesDocs(t), Options{BatchSize: 1})
	firstFile := make(chan struct{})
	var once sync.Once
	org.Subscribe(func(e Event) {
		if e.Type == EventFile {
			once.Do(func() { close(firstFile) })
			time.Sleep(time.Millisecond)
		}
	})

	handle, err := org.StartScan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)
	<-firstFile
	last := filepath.Join(handle.Root, "f199.png")
	org.ApplyChange(handle.Root, last)

	summary := handle.Wait()
	require.NoError(t, summary.Err)
	require.False(t, summary.Cancelled)

	seen := make(map[string]int)
	for _, record := range org.Store().Snapshot() {
		seen[record.Path]++
	}
	assert.Len(t, seen, 200)
	assert.Equal(t, 200, org.Store().Len())
	assert.Equal(t, 1, seen[last])
}

func Test_Organizer_ApplyChange_UnchangedFileIsQuiet(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "png")

	org := newOrganizer(t, imagesDocs(t), Options{})
	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	var changed atomic.Int32
	org.Subscribe(func(e Event) {
		if e.Type == EventFileChanged {
			changed.Add(1)
		}
	})
	generation := org.Store().Generation()
	org.ApplyChange(summary.Root, filepath.Join(summary.Root, "a.png"))

	assert.Equal(t, int32(0), changed.Load())
	assert.Equal(t, generation, org.Store().Generation())
}

func Test_Organizer_Status(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "12345")
	writeFile(t, filepath.Join(tmpDir, "b.png"), "12345")
	writeFile(t, filepath.Join(tmpDir, "c.txt"), "1")

	org := newOrganizer(t, imagesDocs(t), Options{})
	summary, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	status := org.Status()
	assert.Equal(t, 3, status.Files)
	assert.Equal(t, int64(11), status.TotalSizeBytes)
	assert.Equal(t, map[string]int{"Images": 2, category.Uncategorized: 1}, status.CategoryCounts)
	assert.Equal(t, 2, status.Categories)
	assert.Equal(t, status.RegistryVersion, status.IndexVersion)
	assert.Equal(t, summary.Root, status.Root)
	assert.Nil(t, status.ActiveScan)
}

func Test_Organizer_CancelScan(t *testing.T) {
	org := newOrganizer(t, imagesDocs(t), Options{})
	assert.False(t, org.CancelScan())

	tmpDir := t.TempDir()
	writeFiles(t, tmpDir, 200, "f%03d.png")
	gate := make(chan struct{})
	var once sync.Once
	org.Subscribe(func(e Event) {
		if e.Type == EventFile {
			once.Do(func() { close(gate) })
			time.Sleep(time.Millisecond)
		}
	})

	handle, err := org.StartScan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)
	<-gate
	assert.True(t, org.CancelScan())
	assert.True(t, handle.Wait().Cancelled)
}

func Test_Organizer_EventsOrder(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.png"), "x")

	org := newOrganizer(t, imagesDocs(t), Options{})
	var mu sync.Mutex
	var types []EventType
	org.Subscribe(func(e Event) {
		mu.Lock()
		types = append(types, e.Type)
		mu.Unlock()
	})

	_, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventScanStarted, EventFile, EventScanFinished}, types)
}

func Test_Organizer_ResultsOrderMatchesWalk(t *testing.T) {
	tmpDir := t.TempDir()
	writeFiles(t, filepath.Join(tmpDir, "b"), 20, "b%02d.png")
	writeFiles(t, filepath.Join(tmpDir, "a"), 20, "a%02d.pdf")

	org := newOrganizer(t, imagesDocs(t), Options{BatchSize: 3})
	_, err := org.Scan(context.Background(), tmpDir, ScanRequest{})
	require.NoError(t, err)

	got := names(org.Store().Snapshot())
	assert.True(t, sort.StringsAreSorted(got))
	assert.Len(t, got, 40)
}
