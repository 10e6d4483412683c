package usvscope

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mousetube/usvscope/pkg/logger"
	"github.com/mousetube/usvscope/pkg/usvscope/audio"
	"github.com/mousetube/usvscope/pkg/utils"
)

// runLogger tags every line of a batch run with its ID when the configured
// logger supports structured fields.
func (s *usvService) runLogger(runID string) Logger {
	if l, ok := s.log.(*logger.Logger); ok {
		return l.With("run", runID)
	}
	return s.log
}

// ProcessDir renders every regular file in dir. Files are handed to at most
// cfg.Workers goroutines; reports keep the lexical order of the files.
func (s *usvService) ProcessDir(ctx context.Context, dir string) (*BatchReport, error) {
	files, err := utils.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &BatchReport{RunID: uuid.NewString()}
	log := s.runLogger(report.RunID)
	log.Infof("processing %d files from %s", len(files), dir)

	items := make([]*FileReport, len(files))
	workers := max(1, min(s.cfg.Workers, len(files)))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = s.processFile(ctx, log, files[i], utils.FileStem(files[i]))
			}
		}()
	}

feed:
	for i := range files {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i, it := range items {
		if it == nil {
			it = &FileReport{Source: files[i], Name: utils.FileStem(files[i]), Err: ctx.Err()}
		}
		report.add(it)
	}
	report.Elapsed = time.Since(start)
	log.Infof("done: %d rendered, %d skipped, %d failed in %s",
		report.Rendered, report.Skipped, report.Failed, report.Elapsed.Round(time.Millisecond))
	return report, ctx.Err()
}

// ProcessURLs downloads each recording, renders it, and deletes the
// download. Requests are strictly sequential with cfg.RequestDelay between
// them; local and non-http(s) links are skipped without a request.
func (s *usvService) ProcessURLs(ctx context.Context, urls []string) (*BatchReport, error) {
	start := time.Now()
	report := &BatchReport{RunID: uuid.NewString()}
	log := s.runLogger(report.RunID)

	dlDir := filepath.Join(s.cfg.TempDir, "usvscope-"+report.RunID)
	defer utils.DeleteDir(dlDir)

	log.Infof("processing %d links", len(urls))
	requested := false
	for _, raw := range urls {
		if ctx.Err() != nil {
			report.add(&FileReport{Source: raw, Err: ctx.Err()})
			continue
		}

		rep := &FileReport{Source: raw}
		u, err := utils.ValidateRecordingURL(raw)
		if err != nil {
			if errors.Is(err, utils.ErrLocalLink) || errors.Is(err, utils.ErrUnsupportedScheme) {
				log.Infof("skipping %s: %v", raw, err)
				rep.Outcome = (&Outcome{Name: raw}).skip(err)
			} else {
				log.Warnf("skipping %s: %v", raw, err)
				rep.Err = err
			}
			report.add(rep)
			continue
		}
		rep.Name = utils.StemFromURL(u)

		if s.cfg.SkipExisting {
			if exists, err := s.sink.Exists(imageName(rep.Name)); err == nil && exists {
				log.Infof("%s: image already exists, skipping download", rep.Name)
				rep.Outcome = (&Outcome{Name: rep.Name}).skip(ErrAlreadyRendered)
				report.add(rep)
				continue
			}
		}

		if requested && !sleepCtx(ctx, s.cfg.RequestDelay) {
			rep.Err = ctx.Err()
			report.add(rep)
			continue
		}
		requested = true

		dlStart := time.Now()
		dl, err := audio.Fetch(ctx, s.cfg.HTTPClient, u.String(), dlDir)
		if err != nil {
			log.Errorf("%s: download failed: %v", rep.Name, err)
			rep.Err = err
			report.add(rep)
			continue
		}
		log.Infof("%s: downloaded %s in %s", rep.Name, humanize.Bytes(uint64(dl.Bytes)), time.Since(dlStart).Round(time.Millisecond))

		fileRep := s.processFile(ctx, log, dl.Path, rep.Name)
		if err := utils.DeleteFile(dl.Path); err != nil {
			log.Warnf("%s: removing download: %v", rep.Name, err)
		}
		fileRep.Source = raw
		fileRep.Bytes = dl.Bytes
		report.add(fileRep)
	}

	report.Elapsed = time.Since(start)
	log.Infof("done: %d rendered, %d skipped, %d failed in %s",
		report.Rendered, report.Skipped, report.Failed, report.Elapsed.Round(time.Millisecond))
	return report, ctx.Err()
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
