// Package cli implements the banklab command tree
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/banklab/internal/model"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile    string
	verbose    bool
	dataDir    string
	runTimeout time.Duration
)

const rule = "═══════════════════════════════════════════════════════════"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "banklab",
	Short: "BankLab - normalized bank fundamentals from SEC filings",
	Long: `BankLab turns XBRL disclosures from SEC filings into a clean quarterly
panel of bank fundamentals.

It resolves the many ways banks tag the same line item into one value per
bank, quarter and concept, pivots the result wide, computes bank KPIs
(ROE, NIM, efficiency, capital and valuation ratios) and checks the data
for accounting inconsistencies.

Every number is computed deterministically from filings; the optional
analyst summary only narrates figures already in the tables.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("banklab %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.banklab/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides data_dir)")
	rootCmd.PersistentFlags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall timeout")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and BANKLAB_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to load .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.banklab")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("BANKLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Conventional names used by other tools
	_ = viper.BindEnv("sec.user_agent", "BANKLAB_SEC_USER_AGENT", "SEC_USER_AGENT")
	_ = viper.BindEnv("llm.api_key", "BANKLAB_LLM_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("llm.base_url", "BANKLAB_LLM_BASE_URL", "OLLAMA_BASE_URL")
	_ = viper.BindEnv("output.postgres_url", "BANKLAB_OUTPUT_POSTGRES_URL", "DATABASE_URL")

	if err := setDefaults(model.DefaultConfig()); err != nil {
		log.WithError(err).Warn("Failed to register config defaults")
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of cfg so env variables can override
// keys the config file does not mention
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			viper.SetDefault(key, v)
		}
	}
	walk("", tree)
	return nil
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Output.Verbose = verbose
	for i, t := range cfg.Tickers {
		cfg.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return cfg, nil
}

// commandContext is cancelled on SIGINT/SIGTERM or after --timeout
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n%s\n  %s\n%s\n\n", rule, title, rule)
}

func field(name string, value any) {
	fmt.Fprintf(os.Stderr, "  %-14s%v\n", name+":", value)
}
