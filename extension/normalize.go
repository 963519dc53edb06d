// Package extension is the single place where file extensions are normalized.
// Registry input, scanner output and index lookups all go through Normalize,
// so an extension registered as ".PNG" matches a file named "photo.png".
package extension

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// NoExtension is the normalized key for files without an extension
// (e.g. "Makefile", ".bashrc" or "notes.").
const NoExtension = ""

// Normalize case-folds an extension and strips surrounding whitespace and
// leading dots. "" and "." both normalize to NoExtension.
func Normalize(raw string) string {
	ext := strings.TrimSpace(raw)
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return NoExtension
	}
	return cases.Fold().String(ext)
}

// FromPath returns the normalized extension of a file path.
// Only the last dot of the base name counts ("archive.tar.gz" -> "gz").
// A base name whose only dot is the leading one has no extension.
func FromPath(filePath string) string {
	base := filepath.Base(filePath)
	dot := strings.LastIndex(base, ".")
	if dot <= 0 || dot == len(base)-1 {
		return NoExtension
	}
	return Normalize(base[dot+1:])
}

// ParseList splits a whitespace or comma separated list such as "py txt .java"
// into normalized extensions, dropping empty items and duplicates.
func ParseList(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return Dedupe(fields)
}

// Dedupe normalizes every item and removes duplicates, keeping first-seen order.
// Blank items are kept once as NoExtension, since a caller passing "" asks
// for files without an extension.
func Dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		ext := Normalize(item)
		if seen[ext] {
			continue
		}
		seen[ext] = true
		result = append(result, ext)
	}
	return result
}

// Display returns a printable form of a normalized extension.
func Display(ext string) string {
	if ext == NoExtension {
		return "(none)"
	}
	return "." + ext
}

// ParseFilter reads an extension given as a query filter. The display form
// "(none)" selects files without an extension; anything else is normalized.
func ParseFilter(value string) string {
	if strings.TrimSpace(value) == Display(NoExtension) {
		return NoExtension
	}
	return Normalize(value)
}
