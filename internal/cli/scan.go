package cli

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/git-pkgs/npmscan/internal/checkpoint"
	"github.com/git-pkgs/npmscan/internal/input"
	"github.com/git-pkgs/npmscan/internal/registry"
	"github.com/git-pkgs/npmscan/internal/report"
	"github.com/git-pkgs/npmscan/internal/scan"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type scanConfig struct {
	Input       string
	Output      string
	Token       string
	RegistryURL string
	Proxy       string
	ProxyUser   string
	ProxyPass   string
	Concurrency int
	Timeout     time.Duration
	WindowDays  int
	Year        int
	SaveEvery   int
	NoResume    bool
	NoBreaker   bool
}

// NewScanCmd creates the scan command
func NewScanCmd() *cobra.Command {
	var config scanConfig

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a package list against the registry",
		Long: `Reads package names from the first column of a CSV file (header row
skipped) and writes a per-version report. Interrupting the scan saves a
checkpoint next to the input file; re-running resumes it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Input == "" {
				return fmt.Errorf("--input is required")
			}
			if config.Output == "" {
				config.Output = report.OutputPath(config.Input)
			}
			return runScan(cmd, &config)
		},
	}

	cmd.Flags().StringVarP(&config.Input, "input", "i", "", "CSV file with package names in the first column")
	cmd.Flags().StringVarP(&config.Output, "output", "o", "", "Report CSV path (default: <input>-report.csv)")
	cmd.Flags().StringVarP(&config.Token, "token", "t", "", "Registry access token")
	cmd.Flags().StringVar(&config.RegistryURL, "registry", registry.DefaultURL, "Registry base URL")
	cmd.Flags().StringVar(&config.Proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().StringVar(&config.ProxyUser, "proxy-user", "", "Proxy username")
	cmd.Flags().StringVar(&config.ProxyPass, "proxy-pass", "", "Proxy password")
	cmd.Flags().IntVarP(&config.Concurrency, "concurrency", "c", 15, "Maximum in-flight lookups")
	cmd.Flags().DurationVar(&config.Timeout, "timeout", 30*time.Second, "Per-lookup timeout")
	cmd.Flags().IntVar(&config.WindowDays, "window-days", scan.DefaultWindowDays, "Rolling window size in days")
	cmd.Flags().IntVar(&config.Year, "year", 0, "Scan a fixed calendar year instead of the rolling window")
	cmd.Flags().IntVar(&config.SaveEvery, "checkpoint-every", 10, "Checkpoint after this many completed lookups")
	cmd.Flags().BoolVar(&config.NoResume, "no-resume", false, "Discard any existing checkpoint and start over")
	cmd.Flags().BoolVar(&config.NoBreaker, "no-breaker", false, "Disable the registry circuit breaker")

	return cmd
}

func runScan(cmd *cobra.Command, config *scanConfig) error {
	names, err := input.ReadList(config.Input)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no packages in %s", config.Input)
	}
	logrus.Infof("Read %d packages from %s", len(names), config.Input)

	var window scan.Window
	if config.Year != 0 {
		window = scan.CalendarYear(config.Year)
	} else {
		window = scan.RollingWindow(time.Now(), config.WindowDays)
	}
	logrus.Debugf("Scan window: %s", window)

	store := checkpoint.NewStore(checkpoint.PathFor(config.Input))
	state := resumeState(store, names, config.NoResume)

	opts := []registry.Option{
		registry.WithTimeout(config.Timeout),
		registry.WithToken(config.Token),
	}
	if config.Proxy != "" {
		if _, err := registry.ProxyURL(config.Proxy, config.ProxyUser, config.ProxyPass); err != nil {
			return fmt.Errorf("invalid --proxy: %w", err)
		}
		opts = append(opts, registry.WithProxy(config.Proxy, config.ProxyUser, config.ProxyPass))
	}

	var fetcher registry.MetadataFetcher = registry.New(config.RegistryURL, registry.NewClient(opts...))
	if !config.NoBreaker {
		fetcher = registry.NewBreakerRegistry(fetcher)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := scan.NewCoordinator(fetcher, window,
		scan.WithWorkers(config.Concurrency),
		scan.WithSaver(store),
		scan.WithSaveEvery(config.SaveEvery),
		scan.WithProgress(func(done, total int, name string, result scan.PackageResult) {
			if result.Status == scan.StatusFailed {
				logrus.Warnf("[%d/%d] %s: lookup failed: %s", done, total, name, result.Err)
				return
			}
			logrus.Infof("[%d/%d] %s: %d versions in window", done, total, name, len(result.Versions))
		}),
	)

	status, err := coord.Run(ctx, state)
	if err != nil {
		return err
	}

	if status == scan.Cancelled {
		logrus.Infof("Scan interrupted; progress saved to %s", store.Path())
		logrus.Info("Re-run the same command to resume")
		return nil
	}

	fmt.Println(report.Detail(state))
	fmt.Println(report.Summary(state))

	if err := report.WriteCSV(config.Output, state); err != nil {
		return err
	}

	sum := state.Summary()
	logrus.Infof("Scanned %d packages: %d versions found, %d lookups failed", sum.Scanned, sum.Versions, sum.Failed)
	logrus.Infof("Report written to %s", config.Output)
	return nil
}

// resumeState loads the checkpoint for this input file, if any. A
// checkpoint recorded against a different package list is stale and
// ignored; checkpoint problems are never fatal.
func resumeState(store *checkpoint.Store, names []string, noResume bool) *scan.ScanState {
	if noResume {
		if err := store.Remove(); err != nil {
			logrus.Warnf("Discarding checkpoint: %v", err)
		}
		return scan.NewState(names)
	}

	loaded, err := store.Load()
	if err != nil {
		logrus.Warnf("Ignoring checkpoint: %v", err)
		return scan.NewState(names)
	}
	if loaded == nil {
		return scan.NewState(names)
	}
	if !slices.Equal(loaded.Packages, names) {
		logrus.Warnf("Checkpoint %s was recorded against a different package list; starting over", store.Path())
		return scan.NewState(names)
	}

	logrus.Infof("Resuming from %s: %d of %d packages already scanned", store.Path(), len(loaded.Scanned), len(names))
	return loaded
}
