package core

import (
	"slices"
	"strings"

	"github.com/jmylchreest/toastd/internal/output"
)

// LookupByID finds a row by toast id.
// Returns nil if not found.
func LookupByID(rows []output.Row, id string) *output.Row {
	for i := range rows {
		if rows[i].ID == id {
			return &rows[i]
		}
	}
	return nil
}

// LookupByIndex finds a row by its 1-based index, as printed by the list
// formats. Returns nil if index is out of bounds.
func LookupByIndex(rows []output.Row, index int) *output.Row {
	idx := index - 1
	if idx < 0 || idx >= len(rows) {
		return nil
	}
	return &rows[idx]
}

// Search returns rows whose title or body contains term, ignoring case.
func Search(rows []output.Row, term string) []output.Row {
	if term == "" {
		return rows
	}
	term = strings.ToLower(term)
	var result []output.Row
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Title), term) ||
			strings.Contains(strings.ToLower(r.Body), term) {
			result = append(result, r)
		}
	}
	return result
}

// CountByKind counts rows per kind.
func CountByKind(rows []output.Row) map[string]int {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Kind]++
	}
	return counts
}

// UniqueKinds returns the kinds present in rows, sorted.
func UniqueKinds(rows []output.Row) []string {
	var kinds []string
	for kind := range CountByKind(rows) {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
