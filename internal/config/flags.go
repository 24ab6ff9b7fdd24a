package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagDash       = flag.Bool("dash", false, "Allow dash maneuvers across dash-only cells")
	flagThreshold  = flag.Int("threshold", -1, "Collision threshold for line-of-sight checks")
	flagNoCompress = flag.Bool("no-compress", false, "Keep raw distance fields instead of direction fields")
	flagMetrics    = flag.String("metrics", "", "Serve Prometheus metrics on this address")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag command-line arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagDash {
		cfg.Navigation.DashEnabled = true
	}
	if *flagThreshold >= 0 {
		cfg.Navigation.CollisionThreshold = *flagThreshold
	}
	if *flagNoCompress {
		cfg.Navigation.CompressFields = false
	}
	if *flagMetrics != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = *flagMetrics
	}
}
