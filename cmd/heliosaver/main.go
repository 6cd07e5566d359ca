// Command heliosaver downloads Helioviewer imagery for a list of
// timestamps and converts it into FITS or PNG artifacts.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlexPietrow/HelioSaver/internal/config"
	"github.com/AlexPietrow/HelioSaver/internal/hvclient"
	"github.com/AlexPietrow/HelioSaver/internal/logger"
	"github.com/AlexPietrow/HelioSaver/internal/pipeline"
	"github.com/AlexPietrow/HelioSaver/internal/storage"
)

// acquireFlags holds the flag values shared by the fits and png commands
type acquireFlags struct {
	sourceID     int
	sourceName   string
	outDir       string
	bucket       string
	maxDelta     time.Duration
	timeout      time.Duration
	concurrency  int
	failedLog    string
	strict       bool
	skipExisting bool
	noHeaderTxt  bool
	keepJP2      bool
}

var rootCmd = &cobra.Command{
	Use:   "heliosaver",
	Short: "Download Helioviewer imagery as FITS or PNG",
	Long: `heliosaver locates the closest available observation for each requested
timestamp in the Helioviewer archive, downloads the image and its metadata,
and writes analysis-ready FITS or date-partitioned PNG files.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(fitsCmd())
	rootCmd.AddCommand(pngCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(lsCmd())
	rootCmd.AddCommand(versionCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func addAcquireFlags(cmd *cobra.Command, flags *acquireFlags) {
	cmd.Flags().IntVar(&flags.sourceID, "source-id", -1, "Helioviewer sourceId")
	cmd.Flags().StringVar(&flags.sourceName, "source", "", "curated instrument name, e.g. \"AIA 304\" (alternative to --source-id)")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "output directory (default \".\")")
	cmd.Flags().StringVar(&flags.bucket, "bucket", "", "GCS bucket to store artifacts in instead of the local filesystem")
	cmd.Flags().DurationVar(&flags.maxDelta, "max-delta", 0, "reject matches farther than this from the requested time, e.g. 30m")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "overall per-timestamp budget (default from config)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "parallel downloads (default 1)")
	cmd.Flags().StringVar(&flags.failedLog, "failed-log", "", "append failed/skipped requests to this file")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit nonzero if any timestamp fails")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "leave already-downloaded artifacts untouched")
}

func fitsCmd() *cobra.Command {
	flags := &acquireFlags{}
	cmd := &cobra.Command{
		Use:   "fits DATE...",
		Short: "Download image + metadata and write FITS files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcquire(cmd.Context(), pipeline.ModeFITS, flags, args)
		},
	}
	addAcquireFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.noHeaderTxt, "no-header-txt", false, "skip the raw metadata sidecar file")
	cmd.Flags().BoolVar(&flags.keepJP2, "keep-jp2", false, "also keep the original JP2 payload")
	return cmd
}

func pngCmd() *cobra.Command {
	flags := &acquireFlags{}
	cmd := &cobra.Command{
		Use:   "png DATE...",
		Short: "Download images as PNG into date folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcquire(cmd.Context(), pipeline.ModePNG, flags, args)
		},
	}
	addAcquireFlags(cmd, flags)
	return cmd
}

// runAcquire wires config, storage, the archive client and the pipeline
// together and reports the batch outcome.
func runAcquire(ctx context.Context, mode pipeline.Mode, flags *acquireFlags, dates []string) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyLogLevel(cfg.LogLevel)

	sourceID, err := resolveSource(flags)
	if err != nil {
		return err
	}

	outDir := flags.outDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	bucket := flags.bucket
	if bucket == "" {
		bucket = cfg.GCSBucket
	}
	store, err := storage.NewClient(ctx, bucket, outDir)
	if err != nil {
		return err
	}
	defer store.Close()

	timeout := flags.timeout
	if timeout == 0 {
		timeout = cfg.DownloadTimeout
	}
	concurrency := flags.concurrency
	if concurrency == 0 {
		concurrency = cfg.Concurrency
	}

	opts := pipeline.Options{
		Mode:           mode,
		Concurrency:    concurrency,
		RequestTimeout: timeout,
		MaxTimeDelta:   flags.maxDelta,
		SaveHeaderTxt:  mode == pipeline.ModeFITS && !flags.noHeaderTxt,
		KeepJP2:        flags.keepJP2,
		SkipExisting:   flags.skipExisting,
	}
	if flags.failedLog != "" {
		opts.FailedLog = pipeline.NewFailedLog(flags.failedLog)
	}

	client := hvclient.New(cfg.BaseURL, cfg.QueryTimeout, cfg.DownloadTimeout)
	proc := pipeline.New(client, store, opts)

	reqs := make([]pipeline.Request, len(dates))
	for i, d := range dates {
		reqs[i] = pipeline.Request{Date: d, SourceID: sourceID}
	}

	results := proc.Process(ctx, reqs)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("FAIL\t%s\t%v\n", r.Request.Date, r.Err)
		} else {
			fmt.Printf("OK\t%s\t%s\n", r.Request.Date, store.Location(r.Path))
		}
	}

	summary := pipeline.Summarize(results)
	fmt.Printf("%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	if code := summary.ExitCode(flags.strict); code != 0 {
		os.Exit(code)
	}
	return nil
}

// resolveSource picks the sourceId from --source-id or the curated name
// table via --source
func resolveSource(flags *acquireFlags) (int, error) {
	if flags.sourceName != "" {
		id, ok := hvclient.LookupSource(flags.sourceName)
		if !ok {
			return 0, fmt.Errorf("unknown source name %q; run \"heliosaver sources\" for the curated list", flags.sourceName)
		}
		return id, nil
	}
	if flags.sourceID < 0 {
		return 0, fmt.Errorf("either --source-id or --source is required")
	}
	return flags.sourceID, nil
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the curated instrument name to sourceId table",
		Run: func(cmd *cobra.Command, args []string) {
			ids := hvclient.SourceIDs()
			for _, name := range hvclient.SourceNames() {
				fmt.Printf("%4d\t%s\n", ids[name], name)
			}
		},
	}
}

func lsCmd() *cobra.Command {
	var outDir, bucket, prefix string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.OutputDir
			}
			if bucket == "" {
				bucket = cfg.GCSBucket
			}
			store, err := storage.NewClient(ctx, bucket, outDir)
			if err != nil {
				return err
			}
			defer store.Close()

			paths, err := store.List(ctx, prefix)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory to list")
	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket to list")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list artifacts under this prefix")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the heliosaver version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.GetVersion())
		},
	}
}

// applyLogLevel applies the configured level to the global logger
func applyLogLevel(level string) {
	if l, ok := logger.ParseLevel(level); ok {
		logger.Global().SetLevel(l)
	}
}
