package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/drkane/docdisplay-backend/pkg/batch"
	"github.com/drkane/docdisplay-backend/pkg/fetch"
	"github.com/drkane/docdisplay-backend/pkg/logutils"
	"github.com/drkane/docdisplay-backend/pkg/models"
	"github.com/drkane/docdisplay-backend/pkg/storage"
	"github.com/drkane/docdisplay-backend/pkg/storage/model"
)

type listCmd struct {
	Regno string `arg:"positional,required" help:"charity number, with SC/NI prefix for Scotland and Northern Ireland"`
}

type latestCmd struct {
	Regno string `arg:"positional,required"`
}

type allCmd struct {
	Regno string `arg:"positional,required"`
}

type accountCmd struct {
	Regno string `arg:"positional,required"`
	Fyend string `arg:"positional,required" help:"financial year end, YYYY-MM-DD"`
}

type csvCmd struct {
	Input       string `arg:"positional,required" help:"CSV file of charities to fetch"`
	RegnoColumn string `arg:"--regno-column" default:"regno"`
	FyendColumn string `arg:"--fyend-column" default:"fyend"`
	Logfile     string `arg:"--logfile" help:"progress log destination, stdout when unset"`
	SkipRows    int    `arg:"--skip-rows" help:"number of leading rows to skip when resuming a run"`
}

var args struct {
	List    *listCmd    `arg:"subcommand:list" help:"List the financial year ends a charity has filings for"`
	Latest  *latestCmd  `arg:"subcommand:latest" help:"Download the most recent account"`
	All     *allCmd     `arg:"subcommand:all" help:"Download every listed account"`
	Account *accountCmd `arg:"subcommand:account" help:"Download the account for one financial year end"`
	Csv     *csvCmd     `arg:"subcommand:csv" help:"Download accounts for every row of a CSV file"`

	Destination string `arg:"-d,--destination" default:"documents" help:"Directory downloads are saved to"`
	CCEWApiKey  string `arg:"--ccew-api-key,env:CCEW_API_KEY" help:"Charity Commission register API subscription key"`
	LogLevel    string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
}

var log = logrus.StandardLogger()

func main() {
	p := arg.MustParse(&args)
	logutils.SetLoggerLevel(args.LogLevel)

	session := fetch.NewSession()
	registry, err := fetch.NewRegistry(session, args.CCEWApiKey)
	if err != nil {
		log.Fatalf("unable to create source registry: %v", err)
	}
	store := storage.SetupFsStorage(args.Destination)
	ctx := context.Background()

	switch {
	case args.List != nil:
		for i, account := range listAccounts(ctx, registry, args.List.Regno) {
			fmt.Printf("%d: %s\n", i+1, account.Fyend.Format("2006-01-02"))
		}

	case args.Latest != nil:
		accounts := listAccounts(ctx, registry, args.Latest.Regno)
		if len(accounts) == 0 {
			log.Fatalf("no accounts found for charity %s", args.Latest.Regno)
		}
		download(ctx, session, store, accounts[0], args.Latest.Regno)

	case args.All != nil:
		accounts := listAccounts(ctx, registry, args.All.Regno)
		if len(accounts) == 0 {
			log.Fatalf("no accounts found for charity %s", args.All.Regno)
		}
		for _, account := range accounts {
			download(ctx, session, store, account, args.All.Regno)
		}

	case args.Account != nil:
		fyend, err := time.Parse("2006-01-02", args.Account.Fyend)
		if err != nil {
			log.Fatalf("unable to parse financial year end %q: %v", args.Account.Fyend, err)
		}
		accounts := listAccounts(ctx, registry, args.Account.Regno)
		var found *models.Account
		for i := range accounts {
			if accounts[i].Fyend.Equal(fyend) {
				found = &accounts[i]
			}
		}
		if found == nil {
			log.Fatalf("financial year end %s not found for charity %s", args.Account.Fyend, args.Account.Regno)
		}
		download(ctx, session, store, *found, args.Account.Regno)

	case args.Csv != nil:
		f, err := os.Open(args.Csv.Input)
		if err != nil {
			log.Fatalf("unable to open input file: %v", err)
		}
		defer f.Close()
		processor := batch.New(registry, session, store)
		err = processor.Run(ctx, f, batch.Options{
			RegnoColumn: args.Csv.RegnoColumn,
			FyendColumn: args.Csv.FyendColumn,
			LogPath:     args.Csv.Logfile,
			SkipRows:    args.Csv.SkipRows,
		})
		if err != nil {
			log.Fatalf("batch run failed: %v", err)
		}

	default:
		p.Fail("a subcommand is required")
	}
}

func listAccounts(ctx context.Context, registry *fetch.Registry, regno string) []models.Account {
	source := registry.SourceFor(regno)
	accounts, err := source.ListAccounts(ctx, regno)
	if err != nil {
		log.Fatalf("unable to list accounts: %v", err)
	}
	return accounts
}

func download(ctx context.Context, session *fetch.Session, store model.Storer, account models.Account, regno string) {
	if account.Regno != "" {
		regno = account.Regno
	}
	result, err := fetch.DownloadAccount(ctx, session, store, account.URL, regno, account.Fyend)
	if err != nil {
		log.Fatalf("unable to download account: %v", err)
	}
	if !result.OK() {
		log.Fatalf("unable to download account: %s", result.Err)
	}
	log.Infof("saved %s (%d bytes in %.2fs)", result.FileLocation, result.FileSize, result.TimeTaken.Seconds())
}
