package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trendgate/trendgate/internal/application"
	"github.com/trendgate/trendgate/internal/data"
	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/gates"
)

func newScanCmd() *cobra.Command {
	var (
		flagTimeframe string
		flagMode      string
	)

	cmd := &cobra.Command{
		Use:   "scan [symbols...]",
		Short: "Run one pipeline evaluation and print the verdicts",
		Long: `Evaluates each symbol on the chosen timeframe and prints the gate verdict.
Without arguments the configured symbol universe is scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := application.LoadConfig(flagConfig)
			if err != nil {
				return err
			}

			tf, err := domain.ParseTimeframe(flagTimeframe)
			if err != nil {
				return err
			}

			mode := gates.ModeScan
			switch strings.ToUpper(flagMode) {
			case "SCAN":
			case "AUTO":
				mode = gates.ModeAuto
			default:
				return fmt.Errorf("unknown mode %q (want SCAN or AUTO)", flagMode)
			}

			symbols := args
			if len(symbols) == 0 {
				symbols = cfg.Symbols
			}

			thresholds, err := cfg.LoadThresholds()
			if err != nil {
				return err
			}
			store := data.NewSeriesStore(data.NewBinanceClient())
			pipeline, err := gates.NewPipeline(store, thresholds)
			if err != nil {
				return err
			}

			for _, symbol := range symbols {
				sig, res := pipeline.Evaluate(cmd.Context(), symbol, tf, mode)
				if !res.Passed() {
					fmt.Printf("%-12s %s\n", symbol, res)
					continue
				}
				fmt.Printf("%-12s PASS  %s %s  score=%.1f (%s)\n",
					symbol, sig.Direction, sig.Playbook, sig.Score, sig.ScoreLabel)
				fmt.Printf("%-12s       entry %.4f..%.4f  sl %.4f  tp %.4f / %.4f / %.4f\n",
					"", sig.Levels.EntryLow, sig.Levels.EntryHigh, sig.Levels.SL,
					sig.Levels.TP1, sig.Levels.TP2, sig.Levels.TP3)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagTimeframe, "timeframe", "4h", "Candle timeframe (15m|1h|4h)")
	cmd.Flags().StringVar(&flagMode, "mode", "SCAN", "Evaluation mode (SCAN|AUTO)")
	return cmd
}
