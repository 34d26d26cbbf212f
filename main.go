// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"decopress/automation"
	"decopress/config"
	"decopress/prefs"
	"decopress/prompt"
	"decopress/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	headless   bool
	configPath string
	openOutput bool
	listenAddr string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "decopress",
	Short: "DECOPRESS intranet automation (daily orders report, packing slips)",
	Long: `decopress logs into the DECOPRESS intranet with a headless browser and
produces the daily urgent-orders workbook or a packing slip for one job.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if configPath != "" {
			config.SetConfigPath(configPath)
		}
		if _, err := config.LoadConfig(); err != nil {
			logger.Warn("failed to load config file, using defaults", zap.String("path", config.ConfigPath()), zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Collect urgent orders and write the daily report workbook",
	Args:  cobra.NoArgs,
	RunE:  runDaily,
}

var slipCmd = &cobra.Command{
	Use:   "slip [job-number]",
	Short: "Create a packing slip (xlsx, and pdf when LibreOffice is available) for one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runSlip,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var recentCmd = &cobra.Command{
	Use:   "recent [n]",
	Short: "List recently generated files, or open the n-th one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRecent,
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the saved intranet login",
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the saved intranet login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentialCache().Clear(); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved login credentials have been cleared.")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "run the browser without a window (overrides the config file when given)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.decopress/config.json)")

	dailyCmd.Flags().BoolVar(&openOutput, "open", false, "open the workbook when done")
	slipCmd.Flags().BoolVar(&openOutput, "open", false, "open the slip when done")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "localhost:8080", "listen address")

	credentialsCmd.AddCommand(credentialsClearCmd)
	rootCmd.AddCommand(dailyCmd, slipCmd, serveCmd, recentCmd, credentialsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func credentialCache() *prefs.CredentialCache {
	return prefs.NewCredentialCache(prefs.NewFileStore(filepath.Join(config.AppDataDir(), "credentials.json")))
}

func recentFiles() *prefs.RecentFiles {
	return prefs.NewRecentFiles(filepath.Join(config.AppDataDir(), "recent_files.json"))
}

// newRunner は保存済み設定にコマンドラインの --headless を重ねた Runner を作ります。
func newRunner(cmd *cobra.Command) *automation.Runner {
	headlessSet := cmd.Flags().Changed("headless")
	return &automation.Runner{
		Settings: func() config.Config {
			c := config.GetConfig()
			if headlessSet {
				c.Headless = headless
			}
			return c
		},
		Credentials: credentialCache(),
		Recent:      recentFiles(),
		Logger:      logger,
	}
}

func runDaily(cmd *cobra.Command, args []string) error {
	in := prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
	res, err := newRunner(cmd).RunDailyReport(cmd.Context(), in)
	switch {
	case automation.IsCancelled(err):
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	case errors.Is(err, report.ErrNoOrders):
		fmt.Fprintln(cmd.OutOrStdout(), "No urgent orders found.")
		return nil
	case err != nil:
		logger.Error("daily report failed", zap.Error(err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Daily report saved: %s (%d orders, filter %s)\n", res.Path, len(res.Orders), res.Filter)
	if openOutput {
		openPath(res.Path)
	}
	return nil
}

func runSlip(cmd *cobra.Command, args []string) error {
	in := prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout())
	res, err := newRunner(cmd).RunPackingSlip(cmd.Context(), args[0], in)
	if automation.IsCancelled(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}
	if err != nil {
		logger.Error("packing slip failed", zap.String("job", args[0]), zap.Error(err))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Packing slip saved: %s\n", res.XLSXPath)
	out := res.XLSXPath
	if res.PDFPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "PDF saved: %s\n", res.PDFPath)
		out = res.PDFPath
	} else if res.PDFError != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "PDF not created (%s); Excel file only.\n", res.PDFError)
	}
	if openOutput {
		openPath(out)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	mux := http.NewServeMux()
	SetupRoutes(mux, newRunner(cmd), recentFiles(), credentialCache())

	srv := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		<-cmd.Context().Done()
		_ = srv.Close()
	}()

	logger.Info("starting server", zap.String("addr", "http://"+listenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server start error: %w", err)
	}
	return nil
}

func runRecent(cmd *cobra.Command, args []string) error {
	files, err := recentFiles().Prune()
	if err != nil {
		return fmt.Errorf("read recent files: %w", err)
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > len(files) {
			return fmt.Errorf("no recent file #%s", args[0])
		}
		openPath(files[n-1])
		return nil
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recent files.")
		return nil
	}
	for i, f := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, f)
	}
	return nil
}

// openPath は生成したファイル (またはURL) を既定のアプリで開きます。
func openPath(target string) {
	var err error
	switch runtime.GOOS {
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	case "darwin":
		err = exec.Command("open", target).Start()
	default:
		err = exec.Command("xdg-open", target).Start()
	}
	if err != nil {
		logger.Warn("failed to open file", zap.String("path", target), zap.Error(err))
	}
}
