package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/internal/config"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// checkReport counts outcomes while printing them.
type checkReport struct {
	w        io.Writer
	passed   int
	warnings int
	failed   int
}

func (r *checkReport) step(n int, title string) {
	fmt.Fprintln(r.w, infoStyle.Render(fmt.Sprintf("Step %d: %s...", n, title)))
}

func (r *checkReport) ok(format string, args ...any) {
	r.passed++
	fmt.Fprintln(r.w, successStyle.Render("✅ "+fmt.Sprintf(format, args...)))
}

func (r *checkReport) warn(format string, args ...any) {
	r.warnings++
	fmt.Fprintln(r.w, warningStyle.Render("⚠️  "+fmt.Sprintf(format, args...)))
}

func (r *checkReport) fail(format string, args ...any) {
	r.failed++
	fmt.Fprintln(r.w, errorStyle.Render("❌ "+fmt.Sprintf(format, args...)))
}

func (r *checkReport) detail(format string, args ...any) {
	if verbose {
		fmt.Fprintf(r.w, "   "+format+"\n", args...)
	}
}

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration, token and backend reachability",
	Long: `Check the health of the console setup by verifying:
  • Configuration (base URL, timeout, config file)
  • Bearer token presence and expiry
  • Backend reachability (GET /api/health)
  • Authenticated access (listing wards and beds)

Use --verbose for details. Exits non-zero when a check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &checkReport{w: cmd.OutOrStdout()}
		fmt.Fprintln(r.w, sectionStyle.Render("Hospital Console Health Check"))
		fmt.Fprintln(r.w)

		r.step(1, "Checking configuration")
		if err := cfg.Validate(); err != nil {
			r.fail("Invalid configuration: %v", err)
			return r.finish()
		}
		r.ok("Configuration is valid")
		r.detail("Base URL: %s", cfg.BaseURL)
		r.detail("Timeout: %s", cfg.Timeout)
		if cfg.File != "" {
			r.detail("Config file: %s", cfg.File)
		} else {
			r.detail("Config file: none")
		}
		fmt.Fprintln(r.w)

		r.step(2, "Checking bearer token")
		switch info, err := config.InspectToken(cfg.Token); {
		case !cfg.HasToken():
			r.warn("No token configured; only public endpoints will work")
		case errors.Is(err, config.ErrOpaqueToken):
			r.ok("Opaque token configured")
		case err != nil:
			r.warn("Token could not be decoded: %v", err)
		case info.Expired(time.Now()):
			r.fail("Token expired at %s", formatTime(info.ExpiresAt))
		default:
			r.ok("Token configured")
			r.detail("Subject: %s", dash(info.Subject))
			r.detail("Role: %s", dash(info.Role))
			if !info.ExpiresAt.IsZero() {
				r.detail("Expires: %s", formatTime(info.ExpiresAt))
			}
		}
		fmt.Fprintln(r.w)

		return withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			r.step(3, "Contacting backend")
			start := time.Now()
			health, err := a.Client.Health(ctx, a.Token())
			if err != nil {
				r.fail("Backend unreachable: %v", err)
				return r.finish()
			}
			r.ok("Backend responded: %s", health.Status)
			r.detail("Version: %s", dash(health.Version))
			r.detail("Latency: %s", time.Since(start).Round(time.Millisecond))
			fmt.Fprintln(r.w)

			r.step(4, "Checking authenticated access")
			if !cfg.HasToken() {
				r.warn("Skipped: no token")
				return r.finish()
			}
			wards, err := a.Wards.FetchAll(ctx)
			if err != nil {
				r.fail("Listing wards failed: %v", err)
				return r.finish()
			}
			beds, err := a.Beds.FetchAll(ctx)
			if err != nil {
				r.fail("Listing beds failed: %v", err)
				return r.finish()
			}
			r.ok("Found %d ward(s) and %d bed(s)", len(wards), len(beds))
			return r.finish()
		})(cmd, args)
	},
}

func (r *checkReport) finish() error {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, sectionStyle.Render("Summary"))
	fmt.Fprintf(r.w, "   Passed: %d  Warnings: %d  Failed: %d\n", r.passed, r.warnings, r.failed)
	if r.failed > 0 {
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
