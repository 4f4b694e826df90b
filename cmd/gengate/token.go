package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gengate/gengate/adapters/auth"
	"github.com/gengate/gengate/config"
	"github.com/gengate/gengate/domain/identity"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenRole   string
	tokenPlan   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a local token for testing",
	Long: `Mint a self-contained local token signed with the configured JWT
secret. Useful for exercising the API without an identity provider.

Example:
  gengate token --user u1 --email u1@example.com --role admin --plan premium`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if tokenUserID == "" {
			return fmt.Errorf("--user is required")
		}
		if tokenPlan == "" {
			if def, ok := cfg.Catalog().Default(); ok {
				tokenPlan = def.ID
			}
		}

		svc := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		token, expiresAt, err := svc.GenerateToken(identity.Identity{
			ID:     tokenUserID,
			Email:  tokenEmail,
			Role:   identity.ParseRole(tokenRole),
			PlanID: tokenPlan,
		})
		if err != nil {
			return err
		}

		fmt.Println(token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires: %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user ID (subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "user", "role: user, admin, super_admin")
	tokenCmd.Flags().StringVar(&tokenPlan, "plan", "", "plan ID (default: catalog default)")
}
