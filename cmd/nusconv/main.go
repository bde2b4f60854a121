// Command nusconv converts per-frame Datumaro 3D annotations plus raw
// LiDAR/radar captures into a nuScenes dataset.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/nusconv/internal/annotation"
	"github.com/banshee-data/nusconv/internal/catalog"
	"github.com/banshee-data/nusconv/internal/config"
	"github.com/banshee-data/nusconv/internal/convert"
	"github.com/banshee-data/nusconv/internal/dataset"
	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/monitoring"
	"github.com/banshee-data/nusconv/internal/report"
	"github.com/banshee-data/nusconv/internal/timeutil"
	"github.com/banshee-data/nusconv/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, fsutil.OSFileSystem{}); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("nusconv: %v", err)
	}
}

type cliFlags struct {
	config         string
	annotations    string
	sensors        string
	output         string
	intensityScale string
	workers        int
	catalog        string
	report         string
	dryRun         bool
	version        bool
}

func parseFlags(args []string, stderr io.Writer) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("nusconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "Path to a .json or .yaml conversion config (default "+config.DefaultConvertConfigPath+" when present)")
	fs.StringVar(&f.annotations, "annotations", "", "Annotation root (<session>/<team>/<scene>.json)")
	fs.StringVar(&f.sensors, "sensors", "", "Sensor root holding lidar/ and radar/ captures by session, team and scene")
	fs.StringVar(&f.output, "output", "", "Dataset output root")
	fs.StringVar(&f.intensityScale, "intensity-scale", "", "LiDAR intensity scale: 0-1 or 0-255")
	fs.IntVar(&f.workers, "workers", -1, "Point-cloud encoding workers (0 = NumCPU)")
	fs.StringVar(&f.catalog, "catalog", "", "SQLite catalog recording this run (optional)")
	fs.StringVar(&f.report, "report", "", "Directory for the HTML/PNG run report (optional)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Build and validate tables without writing anything")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	err := fs.Parse(args)
	return f, err
}

// loadConfig resolves the config file and applies flag overrides.
func loadConfig(f cliFlags) (*config.ConvertConfig, error) {
	var cfg *config.ConvertConfig
	switch {
	case f.config != "":
		c, err := config.LoadConvertConfig(f.config)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		if _, err := os.Stat(config.DefaultConvertConfigPath); err == nil {
			c, err := config.LoadConvertConfig(config.DefaultConvertConfigPath)
			if err != nil {
				return nil, err
			}
			cfg = c
		} else {
			cfg = config.EmptyConvertConfig()
		}
	}

	cfg.SetRoots(f.annotations, f.sensors, f.output)
	if f.intensityScale != "" {
		scale, err := config.ParseIntensityScale(f.intensityScale)
		if err != nil {
			return nil, err
		}
		cfg.SetIntensityScale(scale)
	}
	if f.workers >= 0 {
		cfg.SetEncodeWorkers(f.workers)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.GetAnnotationsDir() == "" {
		return nil, fmt.Errorf("annotations directory is required")
	}
	if cfg.GetOutputDir() == "" && !f.dryRun {
		return nil, fmt.Errorf("output directory is required")
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, fsys fsutil.FileSystem) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(stdout, "nusconv %s\n", version.String())
		return nil
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	det, err := annotation.NewDatumaroLoader(fsys, cfg.GetAnnotationsDir()).Load()
	if err != nil {
		return fmt.Errorf("load annotations: %w", err)
	}

	var (
		cat   *catalog.Catalog
		runID string
		clock = timeutil.RealClock{}
	)
	if f.catalog != "" {
		cat, err = catalog.Open(f.catalog, clock)
		if err != nil {
			return err
		}
		defer cat.Close()
		runID, err = cat.BeginRun(catalog.RunParams{
			AnnotationsDir: cfg.GetAnnotationsDir(),
			SensorsDir:     cfg.GetSensorsDir(),
			OutputDir:      cfg.GetOutputDir(),
			DatasetVersion: cfg.GetDatasetVersion(),
			IntensityScale: string(cfg.GetIntensityScale()),
			DryRun:         f.dryRun,
		})
		if err != nil {
			return err
		}
	}

	opts := convert.OptionsFromConfig(cfg)
	opts.DryRun = f.dryRun
	progress := monitoring.NewProgress(stdout)
	deps := convert.Deps{FS: fsys, Progress: progress, Clock: clock}

	writer := dataset.NewWriter(fsys, cfg.GetOutputDir(), cfg.GetDatasetVersion())
	if !f.dryRun {
		if err := writer.Prepare(); err != nil {
			return err
		}
		deps.Sink = writer
	}

	tables, sum, convErr := convert.NewBuilder(opts, deps).Convert(ctx, det)
	if convErr == nil && !f.dryRun {
		if err := writer.WriteTables(tables); err != nil {
			convErr = err
		} else {
			monitoring.Logf("[nusconv] wrote %d tables to %s", len(tables.Named()), writer.TableDir())
		}
	}

	if cat != nil {
		if err := cat.FinishRun(runID, sum, convErr); err != nil {
			monitoring.Logf("[nusconv] failed to record run %s: %v", runID, err)
		}
	}
	if convErr != nil {
		return convErr
	}

	if f.report != "" {
		name := runID
		if name == "" {
			name = "nusconv_" + clock.Now().UTC().Format("20060102T150405Z")
		}
		files, err := report.Write(fsys, f.report, name, sum, opts.FirstFrameGapThreshold)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		monitoring.Logf("[nusconv] report written to %s and %s", files.HTML, files.PNG)
	}

	progress.Summary(sum.Lines())
	return nil
}
