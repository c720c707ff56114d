package storage

import (
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/storage/fs"
	"github.com/drkane/docdisplay-backend/pkg/storage/model"
	"github.com/drkane/docdisplay-backend/pkg/storage/s3"
)

var log = logrus.StandardLogger().WithField("package", "storage")

func SetupFsStorage(dir string) model.Storer {
	return fs.New(dir)
}

func SetupS3Storage(cfg s3.Config) model.Storer {
	selectedStorage, err := s3.New(cfg)
	if err != nil {
		log.Fatalf("unable to create s3 storage: %v", err)
	}
	return selectedStorage
}
