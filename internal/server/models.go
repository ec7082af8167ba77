package server

import (
	"github.com/teilomillet/ragd"
)

type ingestTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type ingestTextResponse struct {
	ragd.IngestResult
	ProcessingTime float64 `json:"processing_time"`
}

type ingestFileResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Source string `json:"source"`
}

type queryRequest struct {
	Question      string   `json:"question"`
	TopK          *int     `json:"top_k,omitempty"`
	Alpha         *float64 `json:"alpha,omitempty"`
	MaxContext    *int     `json:"max_context_chunks,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	IncludePrompt bool     `json:"include_prompt,omitempty"`
}

type queryResponse struct {
	Question       string             `json:"question"`
	Answer         string             `json:"answer"`
	Chunks         []ragd.ScoredChunk `json:"chunks"`
	Prompt         string             `json:"prompt,omitempty"`
	ProcessingTime float64            `json:"processing_time"`
}

type collectionsResponse struct {
	Collections []string `json:"collections"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
