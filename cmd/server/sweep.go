package main

import (
	"context"
	"fmt"

	"github.com/hyfoxus/bank-rest/internal/usecase/expiry"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func NewSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark lapsed cards EXPIRED once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sweeper *expiry.Sweeper
			app := fx.New(
				fx.NopLogger,
				coreModule,
				fx.Populate(&sweeper),
			)
			if err := app.Err(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Stop(context.Background())

			n, err := sweeper.Sweep(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d card(s)\n", n)
			return err
		},
	}
}
