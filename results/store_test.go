package results

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/extension"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(relPath string, cat string, size int64) classify.Record {
	return classify.Record{
		Descriptor: scanner.Descriptor{
			Path:         "/data/" + relPath,
			RelativePath: relPath,
			Extension:    extension.FromPath(relPath),
			SizeBytes:    size,
			ModTime:      time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		},
		Category: cat,
	}
}

func paths(records []classify.Record) []string {
	result := make([]string, len(records))
	for i, r := range records {
		result[i] = r.RelativePath
	}
	return result
}

func sampleStore() *Store {
	s := NewStore()
	s.Append(
		newRecord("a.png", "Images", 100),
		newRecord("docs/b.pdf", "Docs", 200),
		newRecord("c.exe", category.Uncategorized, 300),
		newRecord("photos/d.JPG", "Images", 400),
		newRecord("README", category.Uncategorized, 5),
	)
	return s
}

func Test_Store_AppendPreservesOrder(t *testing.T) {
	s := NewStore()
	s.Append(newRecord("1.txt", "T", 1))
	s.Append(newRecord("2.txt", "T", 1), newRecord("3.txt", "T", 1))
	s.Append()

	assert.Equal(t, []string{"1.txt", "2.txt", "3.txt"}, paths(s.Snapshot()))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, uint64(2), s.Generation())
}

func Test_Store_Query_Filters(t *testing.T) {
	s := sampleStore()

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{"All", Filter{}, []string{"a.png", "docs/b.pdf", "c.exe", "photos/d.JPG", "README"}},
		{"CategoryCaseInsensitive", Filter{Category: "images"}, []string{"a.png", "photos/d.JPG"}},
		{"Uncategorized", Filter{Category: "Uncategorized"}, []string{"c.exe", "README"}},
		{"Extension", Filter{Extension: ".JPG"}, []string{"photos/d.JPG"}},
		{"NoExtension", Filter{Extension: "(none)"}, []string{"README"}},
		{"CategoryAndExtension", Filter{Category: "Images", Extension: "png"}, []string{"a.png"}},
		{"Glob", Filter{Glob: "**/*.pdf"}, []string{"docs/b.pdf"}},
		{"OffsetLimit", Filter{Offset: 1, Limit: 2}, []string{"docs/b.pdf", "c.exe"}},
		{"NoMatch", Filter{Category: "Video"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, paths(got))
		})
	}
}

func Test_Store_Query_InvalidGlob(t *testing.T) {
	_, err := sampleStore().Query(Filter{Glob: "[invalid"})
	var globErr *InvalidGlobError
	assert.ErrorAs(t, err, &globErr)
}

func Test_Store_Query_DoesNotMutate(t *testing.T) {
	s := sampleStore()
	generation := s.Generation()

	got, err := s.Query(Filter{Category: "Images"})
	require.NoError(t, err)
	got[0].Category = "Changed"

	record, ok := s.Get("/data/a.png")
	require.True(t, ok)
	assert.Equal(t, "Images", record.Category)
	assert.Equal(t, generation, s.Generation())
}

func Test_Store_ReplaceAll(t *testing.T) {
	s := sampleStore()
	replacement := []classify.Record{newRecord("z.txt", "Docs", 1)}

	s.ReplaceAll(replacement)
	replacement[0].Category = "mutated by caller"

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Docs", snap[0].Category)
}

func Test_Store_Rewrite_KeepsPosition(t *testing.T) {
	s := sampleStore()
	s.Rewrite(func(current []classify.Record) []classify.Record {
		next := make([]classify.Record, len(current))
		for i, r := range current {
			r.Category = strings.ToUpper(r.Category)
			next[i] = r
		}
		return next
	})

	snap := s.Snapshot()
	assert.Equal(t, "IMAGES", snap[0].Category)
	assert.Equal(t, []string{"a.png", "docs/b.pdf", "c.exe", "photos/d.JPG", "README"}, paths(snap))
}

func Test_Store_UpsertAndRemove(t *testing.T) {
	s := sampleStore()

	s.Upsert(newRecord("docs/b.pdf", "Archive", 999))
	s.Upsert(newRecord("new.txt", "Docs", 1))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a.png", "docs/b.pdf", "c.exe", "photos/d.JPG", "README", "new.txt"}, paths(snap))
	assert.Equal(t, "Archive", snap[1].Category)
	assert.Equal(t, int64(999), snap[1].SizeBytes)

	assert.True(t, s.Remove("/data/c.exe"))
	assert.False(t, s.Remove("/data/c.exe"))
	assert.Equal(t, 5, s.Len())
}

func Test_Store_Merge_ReplacesByPath(t *testing.T) {
	s := sampleStore()
	before := s.Snapshot()

	s.Merge(newRecord("new.txt", "Docs", 1), newRecord("a.png", "Images", 42), newRecord("other.txt", "Docs", 2))

	snap := s.Snapshot()
	assert.Equal(t, []string{"a.png", "docs/b.pdf", "c.exe", "photos/d.JPG", "README", "new.txt", "other.txt"}, paths(snap))
	assert.Equal(t, int64(42), snap[0].SizeBytes)
	assert.NotEqual(t, int64(42), before[0].SizeBytes, "earlier snapshots are not modified")

	s.Merge(newRecord("new.txt", "Docs", 7))
	assert.Equal(t, 7, s.Len())
	record, ok := s.Get("/data/new.txt")
	require.True(t, ok)
	assert.Equal(t, int64(7), record.SizeBytes)
}

func Test_Store_Get_FollowsRewrites(t *testing.T) {
	s := sampleStore()
	assert.True(t, s.Remove("/data/a.png"))
	_, ok := s.Get("/data/a.png")
	assert.False(t, ok)

	record, ok := s.Get("/data/c.exe")
	require.True(t, ok)
	assert.Equal(t, "c.exe", record.RelativePath)

	s.Clear()
	_, ok = s.Get("/data/c.exe")
	assert.False(t, ok)
}

func Test_Store_Clear(t *testing.T) {
	s := sampleStore()
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot())
}

func Test_Store_CountsAndSize(t *testing.T) {
	s := sampleStore()
	counts := s.CategoryCounts()
	assert.Equal(t, 2, counts["Images"])
	assert.Equal(t, 1, counts["Docs"])
	assert.Equal(t, 2, counts[category.Uncategorized])
	assert.Equal(t, int64(1005), s.TotalSizeBytes())
}

func Test_Store_OldSnapshotUnaffectedByAppend(t *testing.T) {
	s := NewStore()
	s.Append(newRecord("1.txt", "A", 1))
	before, err := s.Query(Filter{})
	require.NoError(t, err)

	s.Append(newRecord("2.txt", "A", 1))

	assert.Len(t, before, 1)
	assert.Equal(t, 2, s.Len())
}

// Readers must see either the old or the new content of a rewrite, never a mix.
func Test_Store_ConcurrentReadersSeeWholeRewrites(t *testing.T) {
	s := NewStore()
	for i := 0; i < 200; i++ {
		s.Append(newRecord(fmt.Sprintf("f%03d.txt", i), "v0", 1))
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	mixed := make(chan string, 1)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				for _, record := range snap {
					if record.Category != snap[0].Category {
						select {
						case mixed <- record.Category + " vs " + snap[0].Category:
						default:
						}
						return
					}
				}
			}
		}()
	}

	for v := 1; v <= 50; v++ {
		label := fmt.Sprintf("v%d", v)
		s.Rewrite(func(current []classify.Record) []classify.Record {
			next := make([]classify.Record, len(current))
			for i, r := range current {
				r.Category = label
				next[i] = r
			}
			return next
		})
	}
	close(stop)
	wg.Wait()

	select {
	case m := <-mixed:
		t.Fatalf("reader observed a mixed snapshot: %s", m)
	default:
	}
}

func Test_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleStore().Snapshot()[:2]))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "path,name,category,extension,size_bytes,modified", lines[0])
	assert.Equal(t, "a.png,a.png,Images,png,100,2024-05-06T07:08:09Z", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "docs/b.pdf,b.pdf,Docs,pdf,200,"))
}

func Test_Columns(t *testing.T) {
	record := newRecord("photos/d.JPG", "Images", 2048)
	columns := []string{"name", "", "CATEGORY", "extension", "size", "path", "bogus"}

	assert.Equal(t, []string{"Name", "Category", "Extension", "Size", "Path", "Bogus"}, Headers(columns))
	assert.Equal(t, []string{"d.JPG", "Images", ".jpg", "2.0 KiB", "photos/d.JPG", ""}, Cells(record, columns))

	row := Row(record, columns)
	assert.Equal(t, "Images", row["Category"])
	assert.Equal(t, "2024-05-06 07:08:09", Value(record, "modified"))
	assert.Equal(t, "(none)", Value(newRecord("README", category.Uncategorized, 1), "extension"))
}
