package main

import (
	"context"
	"fmt"

	"github.com/hyfoxus/bank-rest/internal/adapter/auth"
	"github.com/hyfoxus/bank-rest/internal/usecase/user"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func NewTokenCommand() *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				users  *user.UserService
				issuer *auth.Issuer
			)
			app := fx.New(
				fx.NopLogger,
				coreModule,
				fx.Populate(&users, &issuer),
			)
			if err := app.Err(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Stop(context.Background())

			u, err := users.Authenticate(ctx, name, password)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(u)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "user password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
