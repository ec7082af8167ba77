package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/teilomillet/ragd"
	"github.com/teilomillet/ragd/internal/jobs"
	"github.com/teilomillet/ragd/rag"
)

// handleIngestText ingests raw text synchronously and returns what was
// stored.
func (s *Server) handleIngestText(c echo.Context) error {
	var req ingestTextRequest
	if err := c.Bind(&req); err != nil {
		return rag.ValidationError("invalid request body: %v", err)
	}

	start := time.Now()
	result, err := s.ingestor.IngestText(c.Request().Context(), req.Text, req.Source)
	if err != nil {
		return err
	}
	s.metrics.chunksIngested.Add(float64(result.ChunksStored))
	return c.JSON(http.StatusOK, ingestTextResponse{
		IngestResult:   result,
		ProcessingTime: time.Since(start).Seconds(),
	})
}

// handleIngestFile accepts a multipart upload, spools it to a temp file
// and processes it in the background. The response carries a job id for
// polling.
func (s *Server) handleIngestFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return rag.ValidationError("multipart field 'file' is required")
	}
	if fileHeader.Size > rag.MaxFileSize {
		return rag.ValidationError("file size %d exceeds limit of %d bytes", fileHeader.Size, rag.MaxFileSize)
	}
	source := c.FormValue("source")
	if source == "" {
		source = filepath.Base(fileHeader.Filename)
	}

	tmpPath, err := spoolUpload(fileHeader, filepath.Ext(fileHeader.Filename))
	if err != nil {
		return rag.InternalError("failed to store upload", err)
	}

	jobID := s.jobs.Create(source)
	go s.runIngestJob(jobID, tmpPath, source)

	return c.JSON(http.StatusAccepted, ingestFileResponse{
		JobID:  jobID,
		Status: string(jobs.StatusQueued),
		Source: source,
	})
}

// handleIngestStatus reports the state of an asynchronous ingestion.
func (s *Server) handleIngestStatus(c echo.Context) error {
	jobID := c.Param("job_id")
	job, ok := s.jobs.Get(jobID)
	if !ok {
		return rag.NotFoundError("job", jobID)
	}
	return c.JSON(http.StatusOK, job)
}

// runIngestJob processes a spooled upload off the request goroutine.
// Each job gets its own context; a client disconnect does not cancel it.
// The job always reaches a terminal state, even on a panic mid-pipeline.
func (s *Server) runIngestJob(jobID, path, source string) {
	defer os.Remove(path)
	defer func() {
		if r := recover(); r != nil {
			ragd.Error("ingest job panicked", "job_id", jobID, "source", source, "panic", r)
			s.jobs.Fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout+s.cfg.OpenAITimeout)
	defer cancel()

	s.jobs.SetProgress(jobID, 10)
	doc, err := s.parser.Parse(path)
	if err != nil {
		ragd.Error("ingest job failed", "job_id", jobID, "source", source, "error", err)
		s.jobs.Fail(jobID, err.Error())
		return
	}

	// 50 marks the start of the chunk/embed/store stretch, which dominates
	// the job's wall time.
	s.jobs.SetProgress(jobID, 50)
	result, err := s.ingestor.IngestText(ctx, doc.Content, source)
	if err != nil {
		ragd.Error("ingest job failed", "job_id", jobID, "source", source, "error", err)
		s.jobs.Fail(jobID, err.Error())
		return
	}

	s.metrics.chunksIngested.Add(float64(result.ChunksStored))
	s.jobs.Complete(jobID, result)
	ragd.Info("ingest job completed", "job_id", jobID, "source", source,
		"chunks", result.ChunksStored)
}

func spoolUpload(fileHeader *multipart.FileHeader, ext string) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "ragd-upload-*"+ext)
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
