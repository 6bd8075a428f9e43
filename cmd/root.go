package cmd

import (
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oransim/oransim/sim/scenario"
)

var (
	// CLI flags for the simulation run
	configPath  string // Topology configuration file (YAML)
	until       int64  // Run until this tick; 0 means the configured horizon
	seed        int64  // Override the topology seed when >= 0
	logLevel    string // Log verbosity level
	metricsAddr string // Optional address serving the run's /metrics endpoint
	traceOut    string // Optional JSONL file receiving the run trace
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "oransim",
	Short: "Discrete-event simulator for hierarchical RAN control architectures",
}

// runCmd executes a simulation from a topology file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation from a topology configuration",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if configPath == "" {
			logrus.Fatalf("Topology configuration not provided. Exiting simulation.")
		}
		cfg, err := scenario.Load(configPath)
		if err != nil {
			logrus.Fatalf("Cannot load topology: %v", err)
		}
		if seed >= 0 {
			cfg.Seed = seed
		}

		s, err := scenario.Build(cfg)
		if err != nil {
			logrus.Fatalf("Cannot build simulation: %v", err)
		}

		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", s.Metrics().Handler())
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logrus.Warnf("Metrics endpoint stopped: %v", err)
				}
			}()
			logrus.Infof("Serving metrics on %s/metrics", metricsAddr)
		}

		horizon := cfg.Horizon
		if until > 0 {
			horizon = until
		}
		logrus.Infof("Starting simulation: seed=%d horizon=%d ticks", cfg.Seed, horizon)

		startTime := time.Now()
		if err := s.Run(horizon); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulated %d ticks in %s", horizon, time.Since(startTime))

		if traceOut != "" {
			f, err := os.Create(traceOut)
			if err != nil {
				logrus.Fatalf("Cannot create trace file: %v", err)
			}
			defer f.Close()
			if err := s.Trace().WriteJSONL(f); err != nil {
				logrus.Fatalf("Cannot write trace: %v", err)
			}
			logrus.Infof("Trace written to %s", traceOut)
		}

		logrus.Info(s.Trace().Summarize().String())
		s.Metrics().Print()
		logrus.Info("Simulation complete.")
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the YAML topology configuration")
	runCmd.Flags().Int64Var(&until, "until", 0, "run until this tick (0 = configured horizon)")
	runCmd.Flags().Int64Var(&seed, "seed", -1, "override the topology seed (-1 keeps the configured value)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "write the run trace to this JSONL file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
