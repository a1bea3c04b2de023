// Command tokengen issues bearer tokens for the listing API in development.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tair/listing-ledger/pkg/auth"
)

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		secret string
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tokengen <principal>",
		Short: "Issue a signed bearer token for a principal",
		Long: `tokengen signs an HS256 token whose subject is the given principal.
The secret and issuer must match the JWT_SECRET and JWT_ISSUER the listing
service runs with.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			token, err := auth.NewManager(secret, issuer, ttl).GenerateToken(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", os.Getenv("JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().StringVarP(&issuer, "issuer", "i", "listing-ledger", "token issuer")
	cmd.Flags().DurationVarP(&ttl, "ttl", "t", auth.DefaultTTL, "token lifetime")

	return cmd
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
