package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iksnae/hospital-console/internal"
	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/internal/chat"
	"github.com/iksnae/hospital-console/internal/export"
	"github.com/iksnae/hospital-console/internal/tui"
	"github.com/spf13/cobra"
)

var (
	chatSession  string
	chatPlain    bool
	chatOutput   string
	chatPDFOut   string
	exportFormat string
	exportDir    string
	exportStdout bool
	tuiSession   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the hospital assistant",
	Long: `Talk to the hospital assistant and manage its conversations.

Messages go to the session given with --session, or open a new session.
The session id is printed after every reply so it can be continued.`,
}

var chatSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		a.Chat.Select(chatSession)
		draft := chat.NewDraft(strings.Join(args, " "))

		ctx, cancel := requestContext(cmd)
		defer cancel()

		res, err := a.Chat.Send(ctx, draft)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, renderMarkdown(res.Response, chatPlain))
		fmt.Fprintln(w)
		fmt.Fprintln(w, idStyle.Render("session "+a.Chat.Active()))
		return nil
	}),
}

var chatSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		list, err := a.Chat.FetchSessions(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), chatOutput, list, summaryTable("sessions", list))
	}),
}

var chatConversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List stored conversations",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		list, err := a.Chat.FetchConversations(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), chatOutput, list, summaryTable("conversations", list))
	}),
}

func summaryTable(title string, list []chat.Summary) func(io.Writer) {
	return func(w io.Writer) {
		rows := make([][]string, len(list))
		for i, s := range list {
			rows[i] = []string{
				idStyle.Render(s.SessionID),
				truncate(s.Label(), 50),
				strconv.Itoa(s.MessageCount),
				timestampStyle.Render(dash(s.UpdatedAt)),
			}
		}
		writeTable(w, title, []string{"SESSION", "TITLE", "MESSAGES", "UPDATED"}, rows)
	}
}

var chatShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		msgs, err := a.Chat.FetchConversation(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), chatOutput, msgs, func(w io.Writer) {
			printConversation(w, args[0], msgs, chatPlain)
		})
	}),
}

func printConversation(w io.Writer, id string, msgs []chat.Message, plain bool) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Conversation %s (%d messages)", id, len(msgs))))
	for _, m := range msgs {
		fmt.Fprintln(w)
		label := m.Role
		switch m.Role {
		case chat.RoleUser:
			label = userMessageStyle.Render("You")
		case chat.RoleAssistant:
			label = assistantMessageStyle.Render("Assistant")
		}
		if m.Timestamp != "" {
			label += " " + timestampStyle.Render(m.Timestamp)
		}
		fmt.Fprintln(w, label)
		if m.Role == chat.RoleAssistant {
			fmt.Fprintln(w, renderMarkdown(m.Content, plain))
		} else {
			fmt.Fprintln(w, m.Content)
		}
	}
}

var chatClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Delete a chat session on the server",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		if err := a.Chat.Clear(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared session %s\n", doneStyle.Render("✓"), args[0])
		return nil
	}),
}

var chatPDFCmd = &cobra.Command{
	Use:   "pdf <session-id>",
	Short: "Download a conversation as PDF",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		id := args[0]
		ctx, cancel := requestContext(cmd)
		defer cancel()

		h, err := a.Chat.FetchPDF(ctx, id)
		if err != nil {
			return err
		}
		data, err := h.Bytes()
		if err != nil {
			return err
		}

		path := chatPDFOut
		if path == "" {
			path = pdfFileName(id)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		internal.LogDebug("pdf handle %s", h.URL)
		fmt.Fprintf(cmd.OutOrStdout(), "%s Saved %s (%d bytes)\n", doneStyle.Render("✓"), path, len(data))
		return nil
	}),
}

func pdfFileName(id string) string {
	return "conversation-" + chat.SafeName(id) + ".pdf"
}

var chatExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a conversation to a file",
	Long: `Export a conversation as jsonl, md, yaml or json.

The file is written to --output-dir as conversation-<session-id>.<ext>,
or to standard output with --stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		id := args[0]
		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		var msgs []chat.Message
		var summaries []chat.Summary
		err = internal.ShowProgressWithSteps(cmd.Context(), []internal.ProgressStep{
			{Message: "Loading conversation", Fn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
				var err error
				msgs, err = a.Chat.FetchConversation(ctx, id)
				return err
			}},
			{Message: "Loading session titles", Fn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
				var err error
				if summaries, err = a.Chat.FetchSessions(ctx); err != nil {
					internal.LogWarn("exporting without a title: %v", err)
				}
				return nil
			}},
		})
		if err != nil {
			return err
		}

		transcript := export.NewTranscript(id, msgs, summaries...)
		if exportStdout {
			return exporter.Export(transcript, cmd.OutOrStdout())
		}

		if err := os.MkdirAll(exportDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(exportDir, export.FileName(transcript, exporter))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := exporter.Export(transcript, f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to export: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d messages to %s\n", doneStyle.Render("✓"), len(msgs), path)
		return nil
	}),
}

var chatTUICmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive chat screen",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		a.Chat.Select(tuiSession)
		return tui.Run(cmd.Context(), a.Chat)
	}),
}

func init() {
	chatSendCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Continue this session instead of opening a new one")
	chatSendCmd.Flags().BoolVar(&chatPlain, "plain", false, "Print the reply without markdown styling")
	chatShowCmd.Flags().BoolVar(&chatPlain, "plain", false, "Print replies without markdown styling")
	for _, c := range []*cobra.Command{chatSessionsCmd, chatConversationsCmd, chatShowCmd} {
		c.Flags().StringVarP(&chatOutput, "output", "o", outputTable, "Output format: table, json, yaml")
	}
	chatPDFCmd.Flags().StringVar(&chatPDFOut, "out", "", "Output file (default conversation-<session-id>.pdf)")
	chatExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format: "+strings.Join(export.Formats, ", "))
	chatExportCmd.Flags().StringVarP(&exportDir, "output-dir", "d", ".", "Directory to write the file into")
	chatExportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write to standard output instead of a file")
	chatTUICmd.Flags().StringVarP(&tuiSession, "session", "s", "", "Open this session")

	chatCmd.AddCommand(chatSendCmd, chatSessionsCmd, chatConversationsCmd, chatShowCmd,
		chatClearCmd, chatPDFCmd, chatExportCmd, chatTUICmd)
	rootCmd.AddCommand(chatCmd)
}
