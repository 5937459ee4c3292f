package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/app"
	"github.com/spf13/cobra"
)

var (
	logsLevel  string
	logsLimit  int
	logsOutput string
	logOutput  string
)

var levelStyles = map[string]lipgloss.Style{
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"warn":    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
}

func levelLabel(level string) string {
	if s, ok := levelStyles[level]; ok {
		return s.Render(level)
	}
	return level
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect the system log",
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List system log entries, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		if logsLimit < 0 {
			return fmt.Errorf("limit must not be negative")
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		entries, err := a.Logs.FetchAll(ctx, api.LogFilter{Level: logsLevel, Limit: logsLimit})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), logsOutput, entries, func(w io.Writer) {
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					idStyle.Render(e.ID.String()),
					timestampStyle.Render(e.CreatedAt.Format("2006-01-02 15:04:05")),
					levelLabel(e.Level),
					dash(e.Source),
					truncate(e.Message, 70),
				}
			}
			writeTable(w, "log entries", []string{"ID", "TIME", "LEVEL", "SOURCE", "MESSAGE"}, rows)
		})
	}),
}

var logsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one log entry",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		e, err := a.Logs.Fetch(ctx, api.ID(args[0]))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), logOutput, e, func(w io.Writer) {
			writeDetail(w, "log "+e.ID.String(), [][2]string{
				{"Time", e.CreatedAt.Format("2006-01-02 15:04:05")},
				{"Level", levelLabel(e.Level)},
				{"Source", e.Source},
				{"User", e.UserID.String()},
				{"Message", e.Message},
			})
		})
	}),
}

var logsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a log entry",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := a.Logs.Delete(ctx, api.ID(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted log %s\n", doneStyle.Render("✓"), args[0])
		return nil
	}),
}

func init() {
	logsListCmd.Flags().StringVar(&logsLevel, "level", "", "Only entries with this level")
	logsListCmd.Flags().IntVar(&logsLimit, "limit", 0, "Maximum number of entries (0 for all)")
	logsListCmd.Flags().StringVarP(&logsOutput, "output", "o", outputTable, "Output format: table, json, yaml")
	logsShowCmd.Flags().StringVarP(&logOutput, "output", "o", outputTable, "Output format: table, json, yaml")

	logsCmd.AddCommand(logsListCmd, logsShowCmd, logsDeleteCmd)
	rootCmd.AddCommand(logsCmd)
}
