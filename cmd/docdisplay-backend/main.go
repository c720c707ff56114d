package main

import (
	"strings"

	"github.com/alexflint/go-arg"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	backend "github.com/drkane/docdisplay-backend"
	"github.com/drkane/docdisplay-backend/pkg/fetch"
	"github.com/drkane/docdisplay-backend/pkg/index"
	"github.com/drkane/docdisplay-backend/pkg/logutils"
	"github.com/drkane/docdisplay-backend/pkg/storage"
	"github.com/drkane/docdisplay-backend/pkg/storage/model"
	"github.com/drkane/docdisplay-backend/pkg/storage/s3"
)

var args struct {
	ListenAddr string `arg:"-L,--listen-addr" default:"127.0.0.1:8085"`
	LogLevel   string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	CCEWApiKey string `arg:"--ccew-api-key,env:CCEW_API_KEY" help:"Charity Commission register API subscription key"`

	OsAddr     string `arg:"--opensearch-addr,required,env:OPENSEARCH_ADDR"`
	OsIndex    string `arg:"--opensearch-index,env:OPENSEARCH_INDEX" default:"charityaccounts"`
	OsPassword string `arg:"--opensearch-password,env:OPENSEARCH_PASSWORD"`
	OsSkipTLS  bool   `arg:"--opensearch-insecure-skip-verify,env:OPENSEARCH_SKIP_TLS"`
	OsUsername string `arg:"--opensearch-username,env:OPENSEARCH_USERNAME"`

	StorageType string `arg:"--storage-type,env:STORAGE_TYPE" help:"Archive uploaded PDFs to this storage: fs or s3"`
	FsPath      string `arg:"--fs-path,env:FS_PATH" help:"Directory for archived files - when using the fs storage"`
	S3Endpoint  string `arg:"--s3-endpoint,env:S3_ENDPOINT" help:"Endpoint - when using the s3 storage"`
	S3AccessKey string `arg:"--s3-access-key,env:S3_ACCESS_KEY" help:"Access key - when using the s3 storage"`
	S3SecretKey string `arg:"--s3-secret-key,env:S3_SECRET_KEY" help:"Secret key - when using the s3 storage"`
	S3Bucket    string `arg:"--s3-bucket,env:S3_BUCKET" help:"Bucket - when using the s3 storage"`
	S3UseSSL    bool   `arg:"--s3-use-ssl,env:S3_USE_SSL" help:"Use TLS - when using the s3 storage"`
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

	session := fetch.NewSession()
	registry, err := fetch.NewRegistry(session, args.CCEWApiKey)
	if err != nil {
		log.Fatalf("unable to create source registry: %v", err)
	}

	var opts []backend.Option
	if store := getStorage(); store != nil {
		opts = append(opts, backend.WithArchive(store))
	}

	s := backend.New(idx, registry, session, opts...)
	if err := s.Run(args.ListenAddr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func getStorage() model.Storer {
	switch strings.ToLower(args.StorageType) {
	case "":
		return nil
	case "fs":
		return storage.SetupFsStorage(args.FsPath)
	case "s3":
		return storage.SetupS3Storage(s3.Config{
			Endpoint:  args.S3Endpoint,
			AccessKey: args.S3AccessKey,
			SecretKey: args.S3SecretKey,
			Bucket:    args.S3Bucket,
			UseSSL:    args.S3UseSSL,
		})
	}

	log.Fatalf("unknown storage type: %s", args.StorageType)
	return nil
}
