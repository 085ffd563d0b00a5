// Command sgctl is the operator CLI: mint and inspect signed tokens
// with the configured secret, and check a running instance.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialgate/internal/config"
	"github.com/dropDatabas3/socialgate/internal/security/token"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sgctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sgctl",
		Short:         "socialgate operator tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SOCIALGATE_CONFIG"), "path to config.yaml")

	root.AddCommand(newTokenCmd(&configPath))
	root.AddCommand(newPingCmd())
	return root
}

func loadTokens(configPath string) (*token.Service, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Token.Secret == "" {
		return nil, fmt.Errorf("no token secret configured (token.secret or SOCIALGATE_TOKEN_SECRET)")
	}
	return token.NewService([]byte(cfg.Token.Secret), "socialgate")
}

func newTokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue, verify and inspect signed tokens",
	}

	var (
		purpose string
		ttl     time.Duration
		claims  []string
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "mint a token with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadTokens(*configPath)
			if err != nil {
				return err
			}
			appClaims := map[string]any{}
			for _, kv := range claims {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("claim %q is not key=value", kv)
				}
				appClaims[k] = v
			}
			t, err := svc.Issue(purpose, appClaims, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	issue.Flags().StringVar(&purpose, "purpose", "auth", "token purpose")
	issue.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	issue.Flags().StringArrayVar(&claims, "claim", nil, "additional claim, key=value (repeatable)")

	var verifyPurpose string
	verify := &cobra.Command{
		Use:   "verify <token>",
		Short: "verify a token's signature, expiry and purpose",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadTokens(*configPath)
			if err != nil {
				return err
			}
			got, err := svc.Verify(args[0], verifyPurpose)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(got, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	verify.Flags().StringVar(&verifyPurpose, "purpose", "auth", "expected token purpose")

	inspect := &cobra.Command{
		Use:   "inspect <token>",
		Short: "print a token's payload without verifying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts := strings.Split(args[0], ".")
			if len(parts) != 3 {
				return fmt.Errorf("not a signed token")
			}
			payload, err := base64.RawURLEncoding.DecodeString(parts[1])
			if err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
			var pretty map[string]any
			if err := json.Unmarshal(payload, &pretty); err != nil {
				return fmt.Errorf("parse payload: %w", err)
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: signature not verified")
			return nil
		},
	}

	cmd.AddCommand(issue, verify, inspect)
	return cmd
}

func newPingCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "check a running instance's readiness endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			res, err := client.Get(strings.TrimRight(addr, "/") + "/readyz")
			if err != nil {
				return err
			}
			defer res.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("not ready: %d %s", res.StatusCode, strings.TrimSpace(string(body)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "base URL of the instance")
	return cmd
}
