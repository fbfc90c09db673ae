package models

import "time"

// SearchRequest is the request for semantic verse search
type SearchRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

// VerseResult represents a verse with similarity score
type VerseResult struct {
	Reference string  `json:"reference"`
	Book      string  `json:"book"`
	Chapter   int     `json:"chapter"`
	Verse     int     `json:"verse"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// SearchResponse is the response for semantic verse search
type SearchResponse struct {
	Query   string        `json:"query"`
	Results []VerseResult `json:"results"`
	Total   int           `json:"total"`
}

// StatusResponse describes the index engine
type StatusResponse struct {
	State               string     `json:"state"`
	Ready               bool       `json:"ready"`
	VerseCount          int        `json:"verse_count"`
	Dimension           int        `json:"dimension"`
	Translation         string     `json:"translation,omitempty"`
	BuildID             string     `json:"build_id,omitempty"`
	BuildingTranslation string     `json:"building_translation,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastBuiltAt         *time.Time `json:"last_built_at,omitempty"`
	LastBuildSeconds    float64    `json:"last_build_seconds,omitempty"`
}

// BuildResponse acknowledges a build request
type BuildResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	Translation string `json:"translation"`
	BuildID     string `json:"build_id,omitempty"`
}

// TranslationsResponse lists the translations the corpus source offers
type TranslationsResponse struct {
	Available []string `json:"available"`
	Cached    []string `json:"cached"`
	Total     int      `json:"total"`
}
