package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/orientation-mcp/internal/config"
	"github.com/ironsheep/orientation-mcp/internal/imaging"
	"github.com/ironsheep/orientation-mcp/internal/pipeline"
	"github.com/ironsheep/orientation-mcp/internal/rose"
	"github.com/ironsheep/orientation-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("orientation-mcp - orientation analysis of geological imagery")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  orientation-mcp [serve] [-config path]      Run the MCP server on stdin/stdout")
	fmt.Println("  orientation-mcp analyze [flags] files...    Analyse images and print JSON results")
	fmt.Println("  orientation-mcp init-config path            Write the default configuration file")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Run 'orientation-mcp analyze -h' for analysis flags.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  ORIENTATION_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  ORIENTATION_MCP_CONFIG=path        Configuration file used when -config is not given")
}

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("orientation-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol and results)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug := os.Getenv("ORIENTATION_MCP_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("Orientation MCP v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args, debug)
	case "analyze":
		err = runAnalyze(args, debug)
	case "init-config":
		err = runInitConfig(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func loadConfig(path string, debug bool) (*config.Config, error) {
	path = config.ResolvePath(path)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug && path != "" {
		log.Printf("Loaded configuration from %s", path)
	}
	return cfg, nil
}

func runServe(args []string, debug bool) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, debug)
	if err != nil {
		return err
	}

	server.Version = Version
	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runInitConfig(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one path, got %d arguments", len(args))
	}
	if err := config.WriteDefault(args[0]); err != nil {
		return err
	}
	log.Printf("Wrote default configuration to %s", args[0])
	return nil
}

func runAnalyze(args []string, debug bool) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	method := fs.String("method", "", "extraction method: structure_tensor, hough or grains")
	sigma := fs.Float64("sigma", 0, "structure tensor integration scale")
	percentile := fs.Float64("percentile", 0, "structure tensor anisotropy percentile")
	stride := fs.Int("stride", 0, "structure tensor sampling stride")
	lineLength := fs.Int("line-length", 0, "minimum Hough segment length in pixels")
	seed := fs.Uint64("seed", 0, "Hough random seed (0 draws one)")
	segments := fs.Int("segments", 0, "approximate SLIC superpixel count")
	bins := fs.Int("bins", 0, "rose diagram bin count (even)")
	maxDim := fs.Int("max-dimension", 0, "downsize so the longest side is at most this many pixels")
	regionName := fs.String("region-name", "", "analyse only this part of each image, e.g. center or left-half")
	workers := fs.Int("workers", 0, "number of images analysed concurrently")
	outDir := fs.String("out", "", "directory for <name>_rose.png diagrams")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("no image files given")
	}

	cfg, err := loadConfig(*configPath, debug)
	if err != nil {
		return err
	}

	// Flags given on the command line override the configuration.
	p := cfg.Analysis
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "method":
			p.Method = *method
		case "sigma":
			p.Sigma = *sigma
		case "percentile":
			p.Percentile = *percentile
		case "stride":
			p.Stride = *stride
		case "line-length":
			p.LineLength = *lineLength
		case "seed":
			p.Seed = *seed
		case "segments":
			p.Segments = *segments
		case "bins":
			p.Bins = *bins
		case "max-dimension":
			p.MaxDimension = *maxDim
		case "region-name":
			p.Region, p.RegionName = nil, *regionName
		case "workers":
			cfg.Batch.Workers = *workers
		case "out":
			cfg.Batch.OutputDir = *outDir
		}
	})

	var done func(*pipeline.FileResult) error
	if dir := cfg.Batch.OutputDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		done = func(fr *pipeline.FileResult) error {
			return writeRose(dir, fr, cfg.RenderOptions(), debug)
		}
	}

	results, err := pipeline.AnalyzeFiles(context.Background(), imaging.NewImageCache(), fs.Args(), p, cfg.Batch.Workers, done)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	failed := 0
	for _, fr := range results {
		if fr.Error != "" {
			log.Printf("%s: %s", fr.Path, fr.Error)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// writeRose renders the rose diagram of one result into dir.
func writeRose(dir string, fr *pipeline.FileResult, opts rose.RenderOptions, debug bool) error {
	name := strings.TrimSuffix(filepath.Base(fr.Path), filepath.Ext(fr.Path))
	opts.Title = fmt.Sprintf("%s (n=%d)", name, fr.Result.Histogram.Total)

	data, err := rose.Render(fr.Result.Histogram, opts)
	if err != nil {
		return fmt.Errorf("failed to render rose for %s: %w", fr.Path, err)
	}
	out := filepath.Join(dir, name+"_rose.png")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	if debug {
		log.Printf("Wrote %s", out)
	}
	return nil
}
