package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"reelforge/internal/config"
	"reelforge/internal/domain/model"
	"reelforge/internal/infra/logging"
	"reelforge/internal/infra/video"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", config.DefaultPath, "path to YAML config file")
	verbose := flag.Bool("v", false, "log every ffmpeg pass")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: render [-config file] [-v] <manifest.json>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}

	cfg, err := config.LoadConfig(*cfgPath, *verbose)
	if err != nil {
		errColor.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logCfg := cfg.Log
	logCfg.Format = "console"
	if !*verbose {
		logCfg.Level = "warn"
	}
	logger := logging.New(logCfg, *verbose)

	m, err := readManifest(flag.Arg(0))
	if err != nil {
		errColor.Fprintf(os.Stderr, "manifest: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Rendering %d clips to %s\n", m.ClipCount(), m.OutputPath)
	rep, err := video.NewAssembler(cfg.Render, video.ExecRunner{}, logger).Assemble(ctx, m)
	if err != nil {
		errColor.Fprintf(os.Stderr, "render failed: %v\n", err)
		return 1
	}
	for _, i := range rep.Skipped {
		warnColor.Printf("segment %d skipped\n", i+1)
	}
	okColor.Printf("Video created: %s (%d clips)\n", rep.OutputPath, rep.Clips)
	return 0
}

func readManifest(path string) (model.RenderManifest, error) {
	var m model.RenderManifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}
