package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/dataprocessor/pkg/config"
	"github.com/cuemby/dataprocessor/pkg/ipc"
	"github.com/cuemby/dataprocessor/pkg/log"
	"github.com/cuemby/dataprocessor/pkg/metrics"
	"github.com/cuemby/dataprocessor/pkg/supervisor"
	"github.com/cuemby/dataprocessor/pkg/worker"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dataprocessor CONFIG_PATH PROCESS_NAME",
	Short:   "Run a generic data-ingestion supervisor from a named configuration record",
	Version: Version,
	Args:    cobra.ExactArgs(2),
	RunE:    runSupervisor,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("dataprocessor version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for the Prometheus metrics/health HTTP server")
	rootCmd.Flags().String("shm-dir", os.TempDir(), "Base directory for process-mode shared-memory files")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(processWorkerCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	configPath, processName := args[0], args[1]
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	shmDir, _ := cmd.Flags().GetString("shm-dir")

	store, err := config.Load(configPath)
	if err != nil {
		return err
	}
	record, err := store.Get(processName)
	if err != nil {
		return err
	}

	sup, err := supervisor.New(supervisor.Config{
		Name:   processName,
		Record: record,
		ShmDir: shmDir,
		Hooks:  supervisor.DefaultHooks(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialise supervisor: %w", err)
	}

	metrics.SetVersion(Version)
	metrics.RegisterComponent("supervisor", false, "starting")
	metrics.RegisterComponent("transport", true, "bound")

	go func() {
		http.Handle("/metrics", metrics.Handler())
		http.Handle("/health", metrics.HealthHandler())
		http.Handle("/ready", metrics.ReadyHandler())
		http.Handle("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			log.Logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

	if err := sup.Start(); err != nil {
		return fmt.Errorf("failed to start supervisor: %w", err)
	}
	metrics.RegisterComponent("supervisor", true, "running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		switch sig {
		case syscall.SIGTERM:
			sup.HandleSignal("SIGTERM")
		default:
			sup.HandleSignal("SIGINT")
		}
	}()

	sup.Wait()
	log.Logger.Info().Msg("supervisor shut down cleanly")
	return nil
}

// processWorkerCmd is the hidden entry point a process-mode ProcessWorker
// re-execs this same binary into: it never appears in help output and
// takes no positional args, only the flags its parent passed it.
var processWorkerCmd = &cobra.Command{
	Use:    "__process-worker",
	Hidden: true,
	RunE:   runProcessWorker,
}

func init() {
	processWorkerCmd.Flags().Int("worker-id", 0, "index of this worker within its manager's pool")
	processWorkerCmd.Flags().String("manager", "", "owning manager's fully qualified name")
	processWorkerCmd.Flags().String("shm-path", "", "path to the manager's file-backed shared region")
	processWorkerCmd.Flags().Int("max-workers", 1, "shared region's worker capacity")
	processWorkerCmd.Flags().String("instance-id", "", "correlation id for this subprocess instance")
}

func runProcessWorker(cmd *cobra.Command, args []string) error {
	workerID, _ := cmd.Flags().GetInt("worker-id")
	managerName, _ := cmd.Flags().GetString("manager")
	shmPath, _ := cmd.Flags().GetString("shm-path")
	maxWorkers, _ := cmd.Flags().GetInt("max-workers")
	instanceID, _ := cmd.Flags().GetString("instance-id")

	conn, err := ipc.NewConnFromFD(3)
	if err != nil {
		return fmt.Errorf("worker %s/%d (%s): recover ipc socket: %w", managerName, workerID, instanceID, err)
	}
	defer conn.Close()

	hooks := supervisor.DefaultHooks()
	process := hooks.NewChildProcess()

	if err := worker.RunChild(conn, workerID, shmPath, maxWorkers, process); err != nil {
		return fmt.Errorf("worker %s/%d (%s): %w", managerName, workerID, instanceID, err)
	}
	return nil
}
