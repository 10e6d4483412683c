package usvscope

import "context"

// Service turns recordings into spectrogram images.
type Service interface {
	// ProcessFile analyzes one local recording and stores its image.
	ProcessFile(ctx context.Context, path string) (*FileReport, error)
	// ProcessDir processes every regular file in dir on a bounded pool of
	// workers. Per-file failures are recorded, not returned.
	ProcessDir(ctx context.Context, dir string) (*BatchReport, error)
	// ProcessURLs downloads and processes remote recordings one at a time,
	// pausing between requests.
	ProcessURLs(ctx context.Context, urls []string) (*BatchReport, error)
	Close() error
}

// Sink persists rendered images under a name chosen by the caller.
type Sink interface {
	Put(ctx context.Context, name string, image []byte) (string, error)
	Exists(name string) (bool, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
