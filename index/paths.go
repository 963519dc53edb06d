// Package index provides word search over the names and paths of scanned files.
package index

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/extension"
)

// PathIndex is an in-memory Bleve index of file names and paths.
// Document IDs are absolute paths.
type PathIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// pathDocument is the document structure stored in Bleve.
type pathDocument struct {
	Terms     string `json:"terms"`     // words of the relative path, split on punctuation
	Name      string `json:"name"`      // lowercased base name, for wildcard queries
	Category  string `json:"category"`  // folded category name
	Extension string `json:"extension"` // display form: ".png" or "(none)"
}

// NewPathIndex creates an empty in-memory index.
func NewPathIndex() (*PathIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &PathIndex{index: bleveIndex}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	termsFieldMapping := bleve.NewTextFieldMapping()
	termsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("terms", termsFieldMapping)

	for _, field := range []string{"name", "category", "extension"} {
		keywordMapping := bleve.NewKeywordFieldMapping()
		keywordMapping.Store = false
		keywordMapping.IncludeInAll = false
		docMapping.AddFieldMappingsAt(field, keywordMapping)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Add indexes or re-indexes records in one batch.
func (pi *PathIndex) Add(records ...classify.Record) error {
	if len(records) == 0 {
		return nil
	}
	pi.mu.Lock()
	defer pi.mu.Unlock()

	batch := pi.index.NewBatch()
	for _, record := range records {
		if err := batch.Index(record.Path, toDocument(record)); err != nil {
			return fmt.Errorf("indexing %s: %w", record.Path, err)
		}
	}
	if err := pi.index.Batch(batch); err != nil {
		return fmt.Errorf("applying index batch: %w", err)
	}
	return nil
}

// Remove deletes one path from the index.
func (pi *PathIndex) Remove(path string) error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if err := pi.index.Delete(path); err != nil {
		return fmt.Errorf("removing %s from index: %w", path, err)
	}
	return nil
}

// Rebuild replaces the whole index content with records.
func (pi *PathIndex) Rebuild(records []classify.Record) error {
	if err := pi.Clear(); err != nil {
		return err
	}
	return pi.Add(records...)
}

// SearchOptions configures a path search.
type SearchOptions struct {
	Query      string // words ("beach 2024") or a name wildcard ("img_*.jpg")
	Category   string // optional, case-insensitive
	Extension  string // optional, as a query filter: "png", ".PNG" or "(none)"
	MaxResults int
}

// Search returns absolute paths of matching files, best match first.
func (pi *PathIndex) Search(options SearchOptions) ([]string, error) {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = 50
	}

	searchRequest := bleve.NewSearchRequest(buildQuery(options))
	searchRequest.Size = options.MaxResults

	searchResults, err := pi.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	paths := make([]string, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		paths = append(paths, hit.ID)
	}
	return paths, nil
}

// buildQuery turns search options into a Bleve query.
func buildQuery(options SearchOptions) query.Query {
	var clauses []query.Query

	text := strings.TrimSpace(options.Query)
	switch {
	case text == "":
		clauses = append(clauses, bleve.NewMatchAllQuery())
	case strings.ContainsAny(text, "*?"):
		wildcard := bleve.NewWildcardQuery(strings.ToLower(text))
		wildcard.SetField("name")
		clauses = append(clauses, wildcard)
	default:
		match := bleve.NewMatchQuery(strings.Join(splitWords(text), " "))
		match.SetField("terms")
		match.SetOperator(query.MatchQueryOperatorAnd)
		clauses = append(clauses, match)
	}

	if options.Category != "" {
		term := bleve.NewTermQuery(category.FoldName(options.Category))
		term.SetField("category")
		clauses = append(clauses, term)
	}
	if options.Extension != "" {
		term := bleve.NewTermQuery(extension.Display(extension.ParseFilter(options.Extension)))
		term.SetField("extension")
		clauses = append(clauses, term)
	}

	if len(clauses) == 1 {
		return clauses[0]
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// DocumentCount returns the number of documents in the Bleve index.
func (pi *PathIndex) DocumentCount() uint64 {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	count, _ := pi.index.DocCount()
	return count
}

// Clear removes all documents and recreates the index.
func (pi *PathIndex) Clear() error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if err := pi.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}
	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating new index: %w", err)
	}
	pi.index = newIndex
	return nil
}

// Close closes the Bleve index.
func (pi *PathIndex) Close() error {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.index.Close()
}

func toDocument(record classify.Record) pathDocument {
	return pathDocument{
		Terms:     strings.Join(splitWords(record.RelativePath), " "),
		Name:      strings.ToLower(record.Name()),
		Category:  category.FoldName(record.Category),
		Extension: extension.Display(record.Extension),
	}
}

// splitWords breaks "Photos/2024/IMG_0042.jpg" into "photos 2024 img 0042 jpg".
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
