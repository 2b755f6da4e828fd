package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/trendgate/trendgate/internal/position"
)

func newPositionsCmd() *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List open positions from a running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + flagAddr + "/positions")
			if err != nil {
				return fmt.Errorf("query watcher at %s: %w", flagAddr, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("watcher returned status %d", resp.StatusCode)
			}

			var body struct {
				Positions []position.Position `json:"positions"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("decode positions: %w", err)
			}

			if len(body.Positions) == 0 {
				fmt.Println("no open positions")
				return nil
			}
			fmt.Printf("%-10s %-4s %-6s %-14s %-10s %s\n",
				"SYMBOL", "TF", "DIR", "STATUS", "SL", "TPs HIT")
			for _, p := range body.Positions {
				fmt.Printf("%-10s %-4s %-6s %-14s %-10.4f %v/%v/%v\n",
					p.Symbol, p.Timeframe, p.Direction, p.Status, p.SLCurrent,
					p.HitTP1, p.HitTP2, p.HitTP3)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:8080", "Watcher HTTP address")
	return cmd
}
