package upload

import (
	"context"
	"sync"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/pkg/logger"
)

type (
	// Result is the settled outcome for one file of a batch.
	Result struct {
		FileName string
		URL      string
		Err      error
	}

	// Outcome is the single report a caller receives once every file in
	// a batch has settled. Successes and failures both preserve the
	// original submission order, regardless of which network call
	// returned first.
	Outcome struct {
		Succeeded []Result
		Failed    []Result
	}
)

// SucceededURLs flattens the successful results to their canonical
// URLs, in submission order.
func (outcome Outcome) SucceededURLs() []string {
	urls := make([]string, len(outcome.Succeeded))
	for k, result := range outcome.Succeeded {
		urls[k] = result.URL
	}

	return urls
}

// AllFailed reports whether not a single file in the batch succeeded,
// which is the only case a batch is reported as failed rather than as
// a partial success with warnings.
func (outcome Outcome) AllFailed() bool {
	return len(outcome.Succeeded) == 0 && len(outcome.Failed) > 0
}

// UploadBatch submits every file concurrently and joins on all of them
// before reporting. "Concurrent" here means overlapping in-flight
// requests; per-file results are buffered by submission index so the
// outcome is deterministic no matter the completion order. A failure of
// one file never blocks or rolls back its siblings.
func (transport *Transport) UploadBatch(ctx context.Context, files []media.LocalFile, kind media.Kind) Outcome {
	results := make([]Result, len(files))

	wg := sync.WaitGroup{}
	for i, file := range files {
		wg.Add(1)
		go func(index int, file media.LocalFile) {
			defer wg.Done()

			url, err := transport.Upload(ctx, file, kind)
			results[index] = Result{FileName: file.Name, URL: url, Err: err}
		}(i, file)
	}
	wg.Wait()

	outcome := Outcome{}
	for _, result := range results {
		if result.Err != nil {
			outcome.Failed = append(outcome.Failed, result)
		} else {
			outcome.Succeeded = append(outcome.Succeeded, result)
		}
	}

	if len(outcome.Failed) > 0 {
		log.Emit(logger.WARNING, "Upload batch settled with %d/%d failures\n", len(outcome.Failed), len(files))
	} else {
		log.Emit(logger.SUCCESS, "Upload batch of %d %s file(s) settled cleanly\n", len(files), kind)
	}

	return outcome
}
