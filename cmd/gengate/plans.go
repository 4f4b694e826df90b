package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gengate/gengate/config"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Show the configured plan catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTIER\tMONTHLY LIMIT\tCREDITS\tSTRIPE PRICE\tDEFAULT")
		for _, p := range cfg.Catalog().All() {
			def := ""
			if p.IsDefault {
				def = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				p.ID, p.Name, p.TierRank, p.MonthlyGenerationLimit,
				p.CreditAllowance, p.StripePriceID, def)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(plansCmd)
}
