package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "storage/fs")

// Fs stores account documents as files in a destination directory. The
// directory is created on first use so a batch run can point at a path
// that doesn't exist yet.
type Fs struct {
	dir string
}

func New(dir string) *Fs {
	return &Fs{dir: dir}
}

func (f *Fs) Store(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if _, err := os.Stat(f.dir); os.IsNotExist(err) {
		log.Debugf("creating directory: %s", f.dir)
		if err := os.MkdirAll(f.dir, 0755); err != nil {
			return "", err
		}
	}

	dest := filepath.Join(f.dir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", err
	}
	log.Debugf("saved to: %s", dest)
	return dest, nil
}

var _ model.Storer = (*Fs)(nil)
