package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teilomillet/ragd"
	"github.com/teilomillet/ragd/rag"
)

const (
	maxTopK       = 20
	maxContextCap = 10
	maxTemp       = 2.0
)

// handleQuery answers a question grounded in retrieved chunks.
func (s *Server) handleQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return rag.ValidationError("invalid request body: %v", err)
	}
	if strings.TrimSpace(req.Question) == "" {
		return rag.ValidationError("question must not be empty")
	}

	opts, err := answerOptions(req)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := s.answerer.Answer(c.Request().Context(), req.Question, opts)
	if err != nil {
		return err
	}
	s.metrics.queriesServed.Inc()

	resp := queryResponse{
		Question:       result.Question,
		Answer:         result.Answer,
		Chunks:         result.Chunks,
		ProcessingTime: time.Since(start).Seconds(),
	}
	if resp.Chunks == nil {
		resp.Chunks = []ragd.ScoredChunk{}
	}
	if req.IncludePrompt {
		resp.Prompt = result.Prompt
	}
	return c.JSON(http.StatusOK, resp)
}

// answerOptions validates per-request overrides against their documented
// bounds.
func answerOptions(req queryRequest) (ragd.AnswerOptions, error) {
	var opts ragd.AnswerOptions
	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > maxTopK {
			return opts, rag.ValidationError("top_k must be between 1 and %d, got %d", maxTopK, *req.TopK)
		}
		opts.TopK = *req.TopK
	}
	if req.Alpha != nil {
		if *req.Alpha < 0 || *req.Alpha > 1 {
			return opts, rag.ValidationError("alpha must be between 0 and 1, got %g", *req.Alpha)
		}
		opts.Alpha = req.Alpha
	}
	if req.MaxContext != nil {
		if *req.MaxContext < 1 || *req.MaxContext > maxContextCap {
			return opts, rag.ValidationError("max_context_chunks must be between 1 and %d, got %d", maxContextCap, *req.MaxContext)
		}
		opts.MaxContext = *req.MaxContext
	}
	if req.Temperature != nil {
		if *req.Temperature < 0 || *req.Temperature > maxTemp {
			return opts, rag.ValidationError("temperature must be between 0 and %g, got %g", maxTemp, *req.Temperature)
		}
		opts.Temperature = req.Temperature
	}
	return opts, nil
}
