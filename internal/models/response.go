package models

import "time"

// NIFLookupResponse represents a single-name lookup result
type NIFLookupResponse struct {
	CompanyName    string         `json:"company_name" example:"Padaria Central, Lda"`
	NIF            string         `json:"nif" example:"509123456"`
	Status         TerminalStatus `json:"status" example:"succeeded"`
	Attempts       int            `json:"attempts" example:"1"`
	LandedURL      string         `json:"landed_url,omitempty" example:"https://www.racius.com/padaria-central-lda/"`
	MatchedRule    string         `json:"matched_rule,omitempty" example:"label_colon"`
	Suspect        bool           `json:"suspect" example:"false"`
	NameSimilarity float64        `json:"name_similarity,omitempty" example:"0.97"`
	NameMismatch   bool           `json:"name_mismatch" example:"false"`
	Cache          bool           `json:"cache" example:"false"`
	DurationMs     int64          `json:"duration_ms" example:"4200"`
	QueriedAt      time.Time      `json:"queried_at" example:"2024-01-15T10:30:00Z"`
}

// NewNIFLookupResponse maps a pipeline result onto the API shape
func NewNIFLookupResponse(r CompanyResult, at time.Time) *NIFLookupResponse {
	return &NIFLookupResponse{
		CompanyName:    r.CompanyName,
		NIF:            r.NIF,
		Status:         r.Status,
		Attempts:       r.Attempts,
		LandedURL:      r.LandedURL,
		MatchedRule:    r.MatchedRule,
		Suspect:        r.Suspect,
		NameSimilarity: r.NameSimilarity,
		NameMismatch:   r.NameMismatch,
		Cache:          r.FromCache,
		DurationMs:     r.DurationMs,
		QueriedAt:      at,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"Invalid company name"`
	Message   string    `json:"message" example:"name query parameter is required"`
	Code      string    `json:"code,omitempty" example:"INVALID_NAME"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Path      string    `json:"path" example:"/api/v1/nif"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Version   string                 `json:"version" example:"1.0.0"`
	Services  map[string]ServiceInfo `json:"services"`
	Uptime    string                 `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo represents individual service health information
type ServiceInfo struct {
	Status         string    `json:"status" example:"healthy"`
	LastCheck      time.Time `json:"last_check" example:"2024-01-15T10:30:00Z"`
	ResponseTimeMs int64     `json:"response_time_ms" example:"150"`
	Error          string    `json:"error,omitempty"`
}
