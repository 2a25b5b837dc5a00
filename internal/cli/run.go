package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [TICKER...]",
	Short: "Fetch data and build fundamentals in one step",
	Long: `Run is 'banklab data fetch' followed by 'banklab fundamentals build'.

Example:
  banklab run
  banklab run JPM BAC C WFC --format csv,xlsx
  banklab run --summary --llm-provider openai`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyFetchFlags(cfg)
		applyBuildFlags(cfg)
		tickers, err := resolveTickers(cfg, args)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		res, err := fetchData(ctx, cfg, tickers)
		if err != nil {
			return err
		}
		return buildFundamentals(ctx, cfg, res.Facts, res.Prices)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addFetchFlags(runCmd)
	addBuildFlags(runCmd)
}
