package models

import (
	"regexp"
	"strings"
	"time"
)

// Placeholders written in the nif column when no identifier was extracted
const (
	PlaceholderNotFound     = "Not found"
	PlaceholderPageNotFound = "Page not found"
)

var nifPattern = regexp.MustCompile(`^\d{9}$`)

// IsNIFShaped reports whether s is exactly nine digits
func IsNIFShaped(s string) bool {
	return nifPattern.MatchString(s)
}

// CompanyQuery is one input row. It is never mutated after creation.
type CompanyQuery struct {
	RawName string `json:"raw_name"`
}

// SlugPolicy names the legal-suffix treatment that produced a slug
type SlugPolicy string

const (
	SlugPolicyKeepMarker  SlugPolicy = "keep_marker"
	SlugPolicyStripSuffix SlugPolicy = "strip_suffix"
)

// CandidateSlug is a URL-path-safe rendering of a company name
type CandidateSlug struct {
	Value  string     `json:"value"`
	Policy SlugPolicy `json:"policy"`
}

// ResolutionStatus is the outcome of landing on a registry page
type ResolutionStatus string

const (
	ResolutionResolved        ResolutionStatus = "resolved"
	ResolutionNotFound        ResolutionStatus = "not_found"
	ResolutionObstacleTimeout ResolutionStatus = "obstacle_timeout"
	ResolutionError           ResolutionStatus = "error"
)

// ResolutionOutcome is produced once per resolution attempt
type ResolutionOutcome struct {
	Status    ResolutionStatus `json:"status"`
	LandedURL string           `json:"landed_url,omitempty"`
	Strategy  string           `json:"strategy,omitempty"`
	Err       error            `json:"-"`
}

// ExtractionStatus is the outcome of the pattern cascade
type ExtractionStatus string

const (
	ExtractionFound    ExtractionStatus = "found"
	ExtractionNotFound ExtractionStatus = "not_found"
)

// ExtractionOutcome holds the identifier captured by the first matching rule
type ExtractionOutcome struct {
	Status        ExtractionStatus `json:"status"`
	Identifier    string           `json:"identifier,omitempty"`
	MatchedRule   string           `json:"matched_rule,omitempty"`
	ChecksumValid bool             `json:"checksum_valid"`
	// Suspect is set when the check digit fails or the last-resort rule won
	Suspect bool `json:"suspect"`
}

// TerminalStatus is the final state of a query
type TerminalStatus string

const (
	StatusSucceeded          TerminalStatus = "succeeded"
	StatusPageNotFound       TerminalStatus = "page_not_found"
	StatusIdentifierNotFound TerminalStatus = "identifier_not_found"
	StatusSearchFailed       TerminalStatus = "search_failed"
)

// Placeholder returns the literal written to the nif column for a failed query
func (s TerminalStatus) Placeholder() string {
	switch s {
	case StatusIdentifierNotFound:
		return PlaceholderNotFound
	case StatusPageNotFound, StatusSearchFailed:
		return PlaceholderPageNotFound
	default:
		return ""
	}
}

// CompanyResult is the unit persisted to the checkpoint and final files
type CompanyResult struct {
	CompanyName    string         `json:"company_name"`
	NIF            string         `json:"nif"`
	Status         TerminalStatus `json:"status"`
	Attempts       int            `json:"attempts"`
	LandedURL      string         `json:"landed_url,omitempty"`
	MatchedRule    string         `json:"matched_rule,omitempty"`
	Suspect        bool           `json:"suspect"`
	NameSimilarity float64        `json:"name_similarity,omitempty"`
	NameMismatch   bool           `json:"name_mismatch"`
	FromCache      bool           `json:"from_cache"`
	DurationMs     int64          `json:"duration_ms"`
}

// CachedNIF is what the result cache keeps for a company that resolved
// cleanly. Suspect identifiers are never cached.
type CachedNIF struct {
	NIF         string    `json:"nif"`
	CompanyName string    `json:"company_name"`
	LandedURL   string    `json:"landed_url,omitempty"`
	MatchedRule string    `json:"matched_rule,omitempty"`
	CachedAt    time.Time `json:"cached_at"`
}

// Succeeded reports whether the result carries a real identifier
func (r CompanyResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// BatchSummary counts results per terminal status
type BatchSummary struct {
	Total              int           `json:"total"`
	Succeeded          int           `json:"succeeded"`
	IdentifierNotFound int           `json:"identifier_not_found"`
	PageNotFound       int           `json:"page_not_found"`
	SearchFailed       int           `json:"search_failed"`
	CacheHits          int           `json:"cache_hits"`
	Suspect            int           `json:"suspect"`
	NameMismatch       int           `json:"name_mismatch"`
	Retries            int           `json:"retries"`
	Checkpoints        int           `json:"checkpoints"`
	Duration           time.Duration `json:"duration"`
}

// Summarize builds a BatchSummary from results
func Summarize(results []CompanyResult) BatchSummary {
	summary := BatchSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusIdentifierNotFound:
			summary.IdentifierNotFound++
		case StatusPageNotFound:
			summary.PageNotFound++
		case StatusSearchFailed:
			summary.SearchFailed++
		}
		if r.FromCache {
			summary.CacheHits++
		}
		if r.Suspect {
			summary.Suspect++
		}
		if r.NameMismatch {
			summary.NameMismatch++
		}
		if r.Attempts > 1 {
			summary.Retries += r.Attempts - 1
		}
	}
	return summary
}

// NewCompanyQueries builds queries from raw names, skipping blank entries
func NewCompanyQueries(names []string) []CompanyQuery {
	queries := make([]CompanyQuery, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		queries = append(queries, CompanyQuery{RawName: n})
	}
	return queries
}
