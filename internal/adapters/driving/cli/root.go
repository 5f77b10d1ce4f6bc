package cli

import (
	"github.com/spf13/cobra"

	"github.com/loci-labs/loci/internal/config"
	"github.com/loci-labs/loci/internal/core/ports/driving"
	"github.com/loci-labs/loci/internal/logger"
)

// version is stamped by Execute; main passes the build-time value.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// Service handles the commands run against. Tests swap these for
// mocks; main installs a bootstrapper that fills them on first use.
var (
	searchService   driving.SearchService
	indexService    driving.Indexer
	documentService driving.DocumentService
	runService      driving.RunService
	appConfig       *config.Config
)

// Services bundles the driving ports and the effective configuration.
type Services struct {
	Search    driving.SearchService
	Indexer   driving.Indexer
	Documents driving.DocumentService
	Runs      driving.RunService
	Config    *config.Config
}

// Bootstrapper builds the service set once flags are parsed. The
// returned closer runs after the command finishes.
type Bootstrapper func(configPath string) (Services, func(), error)

var (
	bootstrapper Bootstrapper
	bootstrapped bool
	teardown     func()
)

var rootCmd = &cobra.Command{
	Use:   "loci",
	Short: "Index and search personal notes on your own machine",
	Long: `loci indexes local notes into a SQLite index and answers hybrid
queries that combine semantic vector similarity with BM25 keyword
relevance. Everything stays on this machine; the only text that
leaves it goes to the configured embedding endpoint.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.loci/config.toml)")
}

// SetServices injects the handles the commands call.
func SetServices(s Services) {
	searchService = s.Search
	indexService = s.Indexer
	documentService = s.Documents
	runService = s.Runs
	appConfig = s.Config
}

// SetBootstrapper installs the deferred service builder. Commands that
// need services trigger it; version and help never do.
func SetBootstrapper(b Bootstrapper) {
	bootstrapper = b
	bootstrapped = false
}

// ensureServices runs the bootstrapper exactly once.
func ensureServices() error {
	if bootstrapper == nil || bootstrapped {
		return nil
	}
	svcs, closer, err := bootstrapper(cfgPath)
	if err != nil {
		return err
	}
	SetServices(svcs)
	teardown = closer
	bootstrapped = true
	return nil
}

// effectiveConfig returns the loaded config, or the defaults when the
// commands run without a bootstrapper.
func effectiveConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	cfg := config.Defaults()
	return &cfg
}

// Execute runs the CLI and releases whatever the bootstrapper opened.
func Execute(ver string) error {
	version = ver
	err := rootCmd.Execute()
	if teardown != nil {
		teardown()
		teardown = nil
	}
	return err
}
