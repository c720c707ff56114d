package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/index"
	"github.com/drkane/docdisplay-backend/pkg/ingest"
	"github.com/drkane/docdisplay-backend/pkg/logutils"
	"github.com/drkane/docdisplay-backend/pkg/models"
)

var args struct {
	Path          string `arg:"positional,required" help:"Account PDF, or a directory of them"`
	SkipIfExists  bool   `arg:"--skip-if-exists" help:"Leave documents already in the index untouched"`
	FileSizeLimit int64  `arg:"--file-size-limit" default:"104857600" help:"Skip files larger than this many bytes"`

	OsAddr     string `arg:"--opensearch-addr,required,env:OPENSEARCH_ADDR"`
	OsIndex    string `arg:"--opensearch-index,env:OPENSEARCH_INDEX" default:"charityaccounts"`
	OsPassword string `arg:"--opensearch-password,env:OPENSEARCH_PASSWORD"`
	OsSkipTLS  bool   `arg:"--opensearch-insecure-skip-verify,env:OPENSEARCH_SKIP_TLS"`
	OsUsername string `arg:"--opensearch-username,env:OPENSEARCH_USERNAME"`
	LogLevel   string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
}

var log = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	logutils.SetLoggerLevel(args.LogLevel)

	idx, err := index.New(index.Config{
		Addr:            args.OsAddr,
		Username:        args.OsUsername,
		Password:        args.OsPassword,
		InsecureSkipTLS: args.OsSkipTLS,
		Index:           args.OsIndex,
	})
	if err != nil {
		log.Fatalf("unable to create index client: %v", err)
	}
	ingestor := ingest.New(idx)

	files, err := collectFiles(args.Path)
	if err != nil {
		log.Fatalf("unable to collect files: %v", err)
	}
	log.Infof("found %d account files", len(files))

	ctx := context.Background()
	var uploaded, skipped, failed int
	for _, file := range files {
		switch uploadFile(ctx, ingestor, file) {
		case uploadOk:
			uploaded++
		case uploadSkipped:
			skipped++
		case uploadFailed:
			failed++
		}
	}
	log.Infof("done: %d uploaded, %d skipped, %d failed", uploaded, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

type uploadOutcome int

const (
	uploadOk uploadOutcome = iota
	uploadSkipped
	uploadFailed
)

func uploadFile(ctx context.Context, ingestor *ingest.Ingestor, path string) uploadOutcome {
	regno, fyend, err := models.ParseAccountFilename(filepath.Base(path))
	if err != nil {
		log.Warnf("skipping %s: %v", path, err)
		return uploadSkipped
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Errorf("unable to stat %s: %v", path, err)
		return uploadFailed
	}
	if info.Size() > args.FileSizeLimit {
		log.Warnf("skipping %s: %d bytes exceeds the file size limit", path, info.Size())
		return uploadSkipped
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("unable to read %s: %v", path, err)
		return uploadFailed
	}

	result, err := ingestor.Ingest(ctx, models.Charity{Regno: regno, FYE: fyend}, content, args.SkipIfExists)
	if err != nil {
		log.Errorf("unable to ingest %s: %v", path, err)
		return uploadFailed
	}
	if result.Error != "" {
		log.Errorf("%s: %s", result.ID, result.Error)
		return uploadFailed
	}
	log.Infof("%s: %s", result.ID, result.Result)
	if result.Result == "already exists" {
		return uploadSkipped
	}
	return uploadOk
}

func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".pdf") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
