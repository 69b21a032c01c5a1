package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/manifest/internal/replay"
	"github.com/okian/manifest/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		files     = flag.String("files", "", "Comma-separated manifest CSV files")
		batchSize = flag.Int("batch", replay.DefaultBatchSize, "Rows per request")
		workers   = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submitters")
		timeout   = flag.Duration("timeout", replay.DefaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", replay.DefaultSettleWait, "How long to wait for rows to be normalized")
		pageSize  = flag.Int("page", replay.DefaultPageSize, "Page limit when listing passengers")
		verbose   = flag.Bool("verbose", false, "Log every batch")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	paths := flag.Args()
	if *files != "" {
		paths = append(strings.Split(*files, ","), paths...)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &replay.Config{
		BaseURL:    strings.TrimRight(*baseURL, "/"),
		Files:      paths,
		BatchSize:  *batchSize,
		Workers:    *workers,
		Timeout:    *timeout,
		SettleWait: *settle,
		PageSize:   *pageSize,
		Verbose:    *verbose,
	}
	if _, err := replay.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "replay failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
