package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/internal/config"
	"github.com/spf13/cobra"
)

var authVerify bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect the configured bearer token",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the configured token says about you",
	Long: `Decode the configured bearer token and print its claims and expiry.

The signature is not checked locally. Use --verify to make one
authenticated request and confirm the backend accepts the token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.HasToken() {
			return errors.New("no token configured (use --token or HOSPITAL_TOKEN)")
		}
		w := cmd.OutOrStdout()
		now := time.Now()

		info, err := config.InspectToken(cfg.Token)
		switch {
		case errors.Is(err, config.ErrOpaqueToken):
			writeDetail(w, "Token", [][2]string{
				{"Type", "opaque"},
				{"Length", fmt.Sprintf("%d characters", len(cfg.Token))},
			})
		case err != nil:
			return err
		default:
			state := "valid"
			switch {
			case info.Expired(now):
				state = errorStyle.Render("expired")
			case !info.ExpiresAt.IsZero():
				state = fmt.Sprintf("valid for %s", info.Remaining(now).Round(time.Second))
			}
			writeDetail(w, "Token", [][2]string{
				{"Type", "JWT"},
				{"Subject", info.Subject},
				{"Username", info.Username},
				{"Role", info.Role},
				{"Issuer", info.Issuer},
				{"Issued", formatTime(info.IssuedAt)},
				{"Expires", formatTime(info.ExpiresAt)},
				{"Status", state},
			})
			if info.Expired(now) && !authVerify {
				return fmt.Errorf("token expired at %s", formatTime(info.ExpiresAt))
			}
		}

		if !authVerify {
			return nil
		}
		return withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			if _, err := a.Wards.FetchAll(ctx); err != nil {
				return fmt.Errorf("backend rejected the token: %w", err)
			}
			fmt.Fprintf(w, "%s Accepted by %s\n", doneStyle.Render("✓"), cfg.BaseURL)
			return nil
		})(cmd, args)
	},
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

func init() {
	authStatusCmd.Flags().BoolVar(&authVerify, "verify", false, "Also check the token against the backend")
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
