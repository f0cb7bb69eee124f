package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/flowmaster/internal/formatter"
	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/shared"
)

// ManifestName is the file written alongside every export.
const ManifestName = "export_manifest.json"

// ExportOpts contains configuration for board exports.
type ExportOpts struct {
	Format     formatter.Format // Export format: text, markdown, csv, json
	OutputDir  string           // Base output directory (default: flowmaster_export_{epoch})
	NumWorkers int              // Concurrent writers (default: 4)
	SkipCard   bool             // Leave today's card out of the export
}

// ExportJob is one file to render and write.
type ExportJob struct {
	Name   string
	render func(formatter.Format) ([]byte, error)
}

// ExportFileResult describes the outcome of writing a single export file.
type ExportFileResult struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExportResult summarizes an export and is written as the manifest.
type ExportResult struct {
	Format          formatter.Format   `json:"format"`
	OutputDirectory string             `json:"output_directory"`
	ExportedAt      time.Time          `json:"exported_at"`
	TaskCount       int                `json:"task_count"`
	HasCard         bool               `json:"has_card"`
	Successful      int                `json:"successful"`
	Failed          int                `json:"failed"`
	Files           []ExportFileResult `json:"files"`
	ManifestPath    string             `json:"-"`
}

// Export writes one file per bucket and one for today's card from the stores' current state.
//
// Files are rendered and written by a pool of workers. A failed file does not stop the others;
// the outcome of each is recorded in the manifest.
func (e *RefreshEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("flowmaster_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	board := formatter.BoardFrom(e.tasks)
	card := e.cards.TodayCard()

	jobs := make([]ExportJob, 0, 4)
	for _, lt := range models.ListTypes() {
		only := board.Only(lt)
		jobs = append(jobs, ExportJob{
			Name:   string(lt),
			render: func(f formatter.Format) ([]byte, error) { return formatter.BoardTo(f, only) },
		})
	}
	if !opts.SkipCard {
		jobs = append(jobs, ExportJob{
			Name:   "daily_card",
			render: func(f formatter.Format) ([]byte, error) { return formatter.CardTo(f, card) },
		})
	}

	result := &ExportResult{
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		TaskCount:       board.Len(),
		HasCard:         card != nil && !opts.SkipCard,
		Files:           make([]ExportFileResult, 0, len(jobs)),
	}

	queue := make(chan ExportJob, len(jobs))
	results := make(chan ExportFileResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, queue, results, opts)
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Files = append(result.Files, res)
		if res.Success {
			result.Successful++
			e.sendProgress(progress, exportCompletedUpdate(completed, len(jobs), res.Name, res.Path))
		} else {
			result.Failed++
			e.sendProgress(progress, exportFailedUpdate(completed, len(jobs), res.Name, fmt.Errorf("%s", res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export cancelled: %w", err)
	}

	manifest, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := formatter.WriteFile(manifestPath, manifest); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("export complete", "dir", opts.OutputDir, "files", result.Successful, "failed", result.Failed)
	return result, nil
}

// exportWorker renders and writes jobs until the queue is drained or ctx is cancelled.
func (e *RefreshEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan ExportJob,
	results chan<- ExportFileResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportFile(job, opts)
	}
}

func (e *RefreshEngine) exportFile(job ExportJob, opts ExportOpts) ExportFileResult {
	res := ExportFileResult{Name: job.Name}

	data, err := job.render(opts.Format)
	if err != nil {
		res.Error = fmt.Sprintf("render failed: %v", err)
		return res
	}

	path := filepath.Join(opts.OutputDir, job.Name+"."+opts.Format.Extension())
	if err := formatter.WriteFile(path, data); err != nil {
		res.Error = err.Error()
		return res
	}

	e.logger.Debug("exported", "name", job.Name, "path", path, "bytes", len(data))
	res.Path = path
	res.Success = true
	return res
}
