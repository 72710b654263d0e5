// Package feeder ingests documents from a directory into the task store.
// JSON files carry {name, text, url}; PDF files are extracted to plain text
// and named after the file.
package feeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/example/tilter/internal/ports/primary"
)

// MaxFileSize - 50MB hard limit for text extraction
const MaxFileSize = 50 * 1024 * 1024

// Feeder walks a directory and ingests every supported document as a root
// task. Ingestion is idempotent because the task service deduplicates on
// name and text.
type Feeder struct {
	tasks  primary.TaskService
	logger *log.Logger
}

// Result summarizes one feed run.
type Result struct {
	Ingested int
	Existing int
	Skipped  []string
}

func NewFeeder(tasks primary.TaskService, logger *log.Logger) *Feeder {
	return &Feeder{tasks: tasks, logger: logger}
}

// FeedDir ingests every supported file directly under dir. Unsupported or
// broken files are skipped and reported, not fatal.
func (f *Feeder) FeedDir(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed dir: %w", err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		req, err := f.extract(path)
		if err != nil {
			f.logger.Printf("skipping %s: %v", entry.Name(), err)
			result.Skipped = append(result.Skipped, entry.Name())
			continue
		}
		if req == nil {
			continue
		}

		resp, err := f.tasks.CreateRootTask(ctx, *req)
		if err != nil {
			return result, fmt.Errorf("failed to ingest %s: %w", entry.Name(), err)
		}
		if resp.Created {
			result.Ingested++
			f.logger.Printf("ingested %s as task %s", entry.Name(), resp.Task.ID)
		} else {
			result.Existing++
		}
	}
	return result, nil
}

// extract turns one file into an ingestion request, or nil for file types
// the feeder does not handle.
func (f *Feeder) extract(path string) (*primary.CreateRootTaskRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("file exceeds size limit of 50MB")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return extractJSON(path)
	case ".pdf":
		text, err := extractPDF(path)
		if err != nil {
			return nil, err
		}
		return &primary.CreateRootTaskRequest{
			Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Text: text,
		}, nil
	}
	return nil, nil
}

// jsonDocument is the on-disk shape of a JSON feed file.
type jsonDocument struct {
	Name string `json:"name"`
	Text string `json:"text"`
	HTML bool   `json:"html,omitempty"`
	URL  string `json:"url,omitempty"`
}

func extractJSON(path string) (*primary.CreateRootTaskRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	if doc.Name == "" || doc.Text == "" {
		return nil, fmt.Errorf("JSON document needs name and text")
	}

	return &primary.CreateRootTaskRequest{
		Name: doc.Name,
		Text: doc.Text,
		HTML: doc.HTML,
		URL:  doc.URL,
	}, nil
}

func extractPDF(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(b)
	return buf.String(), nil
}
