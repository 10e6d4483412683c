package usvscope

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mousetube/usvscope/pkg/utils"
)

// DirSink writes images as files inside a directory.
type DirSink struct {
	Dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

// Put stores image as Dir/name, replacing any previous file atomically.
func (s *DirSink) Put(ctx context.Context, name string, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := utils.WriteFileAtomic(path, image); err != nil {
		return "", fmt.Errorf("failed to write image %s: %w", name, err)
	}
	return path, nil
}

// Exists reports whether an image with this name has already been stored.
func (s *DirSink) Exists(name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *DirSink) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid image name %q", ErrInvalidInput, name)
	}
	return filepath.Join(s.Dir, name), nil
}
