package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/visitlog/internal/blob"
	"github.com/kalambet/visitlog/internal/config"
	"github.com/kalambet/visitlog/internal/export"
	"github.com/kalambet/visitlog/internal/logbook"
	"github.com/kalambet/visitlog/internal/storage"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "visitlog",
	Short:         "Customer visit report logbook",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	rootCmd.AddCommand(addCmd, batchCmd, listCmd, showCmd, editCmd, deleteCmd)
	rootCmd.AddCommand(numberCmd, nextSerialCmd, suggestCmd, recentCmd)
	rootCmd.AddCommand(exportCmd, importCmd, configCmd)
	rootCmd.AddCommand(serveCmd, stopCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is the opened logbook shared by every local command.
type app struct {
	cfg      config.Config
	blobs    storage.Blobs
	book     *logbook.Book
	exporter *export.Exporter
}

func (a *app) Close() {
	if err := a.blobs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
	if c, ok := a.exporter.Store().(io.Closer); ok {
		if err := c.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing export destination: %v\n", err)
		}
	}
}

// openApp loads config, opens storage and the export destination. Tests swap
// it for an in-memory logbook.
var openApp = func(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	blobs, err := storage.OpenDriver(cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	book, err := logbook.Open(blobs)
	if err != nil {
		blobs.Close()
		return nil, err
	}
	dest, err := blob.Open(ctx, blob.Config{
		Driver:    blob.Driver(cfg.Export.Driver),
		Dir:       cfg.Export.Dir,
		Bucket:    cfg.Export.Bucket,
		Region:    cfg.Export.Region,
		Endpoint:  cfg.Export.Endpoint,
		PathStyle: cfg.Export.PathStyle,
		Prefix:    cfg.Export.Prefix,
	})
	if err != nil {
		blobs.Close()
		return nil, fmt.Errorf("opening export destination: %w", err)
	}
	return &app{cfg: cfg, blobs: blobs, book: book, exporter: export.NewExporter(dest)}, nil
}

func setupLogging(cfg config.Config) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
