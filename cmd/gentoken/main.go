// Command gentoken prints a signed bearer token for manual API testing.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/eventboard/server/internal/auth"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		userID int64
		role   string
		expiry time.Duration
		apiURL string
	)
	cmd := &cobra.Command{
		Use:          "gentoken",
		Short:        "Sign a bearer token with SECRET_KEY (or JWT_SECRET)",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				secret = os.Getenv("SECRET_KEY")
			}
			if secret == "" {
				return fmt.Errorf("SECRET_KEY or JWT_SECRET must be set")
			}
			issuer := os.Getenv("JWT_ISSUER")
			if issuer == "" {
				issuer = "eventboard"
			}

			token, err := auth.NewTokenManager(secret, expiry, issuer).Issue(userID, role)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "\ncurl -H 'Authorization: Bearer %s' %s\n", token, apiURL)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 1, "user id carried in the token")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleOrganizer), "role carried in the token")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&apiURL, "url", "http://localhost:5000/api/events", "URL shown in the example request")
	return cmd
}
