package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/visitlog/internal/api"
	"github.com/kalambet/visitlog/internal/config"
	"github.com/kalambet/visitlog/internal/report"
	"github.com/kalambet/visitlog/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and optionally the MCP stdio server) in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		port, _ := cmd.Flags().GetInt("port")
		return runServer(cmd.Context(), port, withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running visitlog server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show visitlog server and storage status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdin/stdout")
	serveCmd.Flags().Int("port", 0, "listen port (default server.port from config)")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "visitlog.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(parent context.Context, port int, withMCP bool) error {
	fmt.Fprintf(os.Stderr, "visitlog version %s\n", version)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		printWarning("visitlog is already running on port %d", port)
		return fmt.Errorf("server already running on port %d", port)
	}

	pidPath := pidFilePath(a.cfg.Storage.DataDir)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	apiToken, err := config.APIToken()
	if err != nil {
		return fmt.Errorf("getting API token: %w", err)
	}
	slog.Info("API bearer token available")

	handler := api.NewAppHandler(api.AppDeps{
		Book:     a.book,
		Exporter: a.exporter,
		Token:    apiToken,
		Metrics:  api.NewMetrics(a.book),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "visitlog listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Book: a.book, Exporter: a.exporter})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("visitlog is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop visitlog (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to visitlog (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		printStatus("Server", "unknown (%v)", err)
	} else if err := client.health(ctx); err != nil {
		printStatus("Server", "stopped")
	} else {
		printStatus("Server", "running on port %d", cfg.Server.Port)
		var reports []report.Report
		resp, err := client.get(ctx, "/reports")
		if err == nil && decodeJSON(resp, &reports) == nil {
			printStatus("Reports", "%d", len(reports))
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Storage", "%s", cfg.Storage.Driver)
	printStatus("Export", "%s", cfg.Export.Driver)

	a, err := openApp(ctx)
	if err != nil {
		printStatus("Reports", "unavailable (%v)", err)
		return nil
	}
	defer a.Close()
	printStatus("Reports stored", "%d", a.book.Reports.Len())
	if t, ok := lastSaved(a.blobs); ok {
		printStatus("Last saved", "%s", humanize.Time(t))
	}
	return nil
}

// lastSaved reports when the reports blob was last written, for backends
// that track it.
func lastSaved(blobs storage.Blobs) (time.Time, bool) {
	tracker, ok := blobs.(interface {
		UpdatedAt(key string) (time.Time, error)
	})
	if !ok {
		return time.Time{}, false
	}
	t, err := tracker.UpdatedAt(storage.KeyReports)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
