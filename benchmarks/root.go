package benchmarks

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zeu5/pricing-rl/config"
)

var (
	episodes    int
	horizon     int
	saveFile    string
	runs        int
	parallelism int
	configFile  string
	logLevel    string
	logJSON     bool
	cpuprofile  bool
	memprofile  bool

	// populated before any subcommand runs
	cfg    *config.Config
	logger *logrus.Logger
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:               "pricing-rl",
		Short:             "Market environments for pricing agents",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 10000, "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 100, "Horizon of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().IntVar(&parallelism, "parallelism", 1, "Number of experiments running at the same time")
	rootCommand.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCommand.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	rootCommand.PersistentFlags().BoolVar(&cpuprofile, "cpuprofile", false, "Write a CPU profile to the save folder")
	rootCommand.PersistentFlags().BoolVar(&memprofile, "memprofile", false, "Write a memory profile to the save folder")
	// adding the subcommands here
	rootCommand.AddCommand(LogitCommand())
	rootCommand.AddCommand(BuyBoxCommand())
	rootCommand.AddCommand(BertrandCommand())
	rootCommand.AddCommand(SequentialCommand())
	rootCommand.AddCommand(EquilibriaCommand())
	rootCommand.AddCommand(PredictCommand())
	rootCommand.AddCommand(ServeCommand())
	rootCommand.AddCommand(CacheInfoCommand())
	return rootCommand
}

// setup loads .env, the configuration file and the PRICING_* overrides. Flags
// given on the command line take precedence over all of them.
func setup(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv()
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("episodes") {
		c.Experiment.Episodes = episodes
	}
	if flags.Changed("horizon") {
		c.Experiment.Horizon = horizon
	}
	if flags.Changed("save") || c.Experiment.SavePath == "" {
		c.Experiment.SavePath = saveFile
	}
	if flags.Changed("runs") {
		c.Experiment.Runs = runs
	}
	if flags.Changed("parallelism") {
		c.Experiment.Parallelism = parallelism
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logJSON {
		c.Log.Format = "json"
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	logger = c.Log.NewLogger()
	logger.WithFields(logrus.Fields{
		"command": cmd.Name(),
		"config":  configFile,
	}).Debug("configuration loaded")
	return nil
}
