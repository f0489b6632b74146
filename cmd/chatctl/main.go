package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aurorachat/internal/config"
	"aurorachat/internal/journal"
	"aurorachat/internal/tui"
	"aurorachat/internal/widget"
)

const version = "0.1.0"

var (
	serverURL string
	prefsPath string
	timeout   time.Duration

	configPath string
	statsLimit int
	statsReset bool
)

var rootCmd = &cobra.Command{
	Use:     "chatctl",
	Short:   "Terminal client for the Aurora chat relay",
	Version: version,
	Example: `  # Open the chat widget in the terminal
  $ chatctl chat

  # Ask a single question
  $ chatctl ask Tell me a joke

  # Check that the relay is up
  $ chatctl health --server http://localhost:4321

  # Summarize the relay journal
  $ chatctl stats --config config.json`,
	SilenceUsage: true,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat widget",
	Long: `Open the chat widget in the terminal.

Keys:
  ctrl+o     open or close the panel
  enter      send the typed message
  alt+1..9   send a quick reply
  ctrl+t     toggle light/dark theme
  ctrl+l     clear the conversation
  esc        close the panel
  ctrl+c     quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask <message...>",
	Short: "Send one message and print the reply",
	RunE:  runAsk,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the relay health endpoint",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|toggle]",
	Short:     "Show or change the persisted theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark", "toggle"},
	RunE:      runTheme,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize relay outcomes from the configured journal",
	Long: `Read the journal configured for the relay (journal.driver) and print
outcome counts followed by the most recent events.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", widget.DefaultServerURL, "relay base URL")
	rootCmd.PersistentFlags().StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.aurora-chat/prefs.json)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", widget.DefaultTimeout, "request timeout")

	statsCmd.Flags().StringVarP(&configPath, "config", "c", "", "relay config file (default $AURORA_CONFIG or config.json)")
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 10, "number of recent events to print")
	statsCmd.Flags().BoolVar(&statsReset, "reset", false, "drop all recorded events after printing")

	rootCmd.AddCommand(chatCmd, askCmd, healthCmd, themeCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func themeStore() (*widget.FileThemeStore, error) {
	path := prefsPath
	if path == "" {
		var err error
		if path, err = widget.DefaultPrefsPath(); err != nil {
			return nil, err
		}
	}
	return widget.NewFileThemeStore(path), nil
}

func newWidget() (*widget.Widget, *widget.HTTPBackend, error) {
	backend, err := widget.NewHTTPBackend(serverURL, timeout)
	if err != nil {
		return nil, nil, err
	}
	store, err := themeStore()
	if err != nil {
		return nil, nil, err
	}
	w, err := widget.New(backend, store)
	if err != nil {
		return nil, nil, err
	}
	return w, backend, nil
}

func runChat(cmd *cobra.Command, _ []string) error {
	w, _, err := newWidget()
	if err != nil {
		return err
	}
	w.Open(cmd.Context())
	if err := tui.NewChatProgram(cmd.Context(), w, tui.DefaultSuggestions).Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	w, _, err := newWidget()
	if err != nil {
		return err
	}
	reply, err := w.Send(cmd.Context(), strings.Join(args, " "))
	if errors.Is(err, widget.ErrEmptyMessage) {
		return errors.New("nothing to send: message is empty")
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	backend, err := widget.NewHTTPBackend(serverURL, timeout)
	if err != nil {
		return err
	}
	health, err := backend.Health(cmd.Context())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), widget.HealthWarning)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", backend.BaseURL(), health.Status,
		time.UnixMilli(health.Timestamp).Format(time.RFC3339))
	return nil
}

func runTheme(cmd *cobra.Command, args []string) error {
	store, err := themeStore()
	if err != nil {
		return err
	}
	current, err := store.Load()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), current)
		return nil
	}

	var next widget.Theme
	switch args[0] {
	case "light":
		next = widget.ThemeLight
	case "dark":
		next = widget.ThemeDark
	case "toggle":
		next = current.Toggle()
	default:
		return fmt.Errorf("unknown theme %q", args[0])
	}
	if err := store.Save(next); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), next)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Journal.Driver == "" {
		return errors.New("journal is disabled: set journal.driver in the relay config")
	}
	rec, err := journal.New(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx := cmd.Context()
	counts, err := rec.Counts(ctx)
	if err != nil {
		return err
	}
	recent, err := rec.Recent(ctx, statsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	fmt.Fprintf(out, "journal: %s\n", cfg.Journal.Driver)
	for _, outcome := range outcomes {
		fmt.Fprintf(out, "%-16s %d\n", outcome, counts[outcome])
	}
	if len(recent) > 0 {
		fmt.Fprintln(out, "recent:")
	}
	for _, ev := range recent {
		line := fmt.Sprintf("  %s %s %s/%s %s", ev.CreatedAt.Format(time.RFC3339), ev.RequestID, ev.Provider, ev.Model, ev.Outcome)
		if ev.UpstreamStatus != 0 {
			line += fmt.Sprintf(" (%d)", ev.UpstreamStatus)
		}
		fmt.Fprintf(out, "%s %s\n", line, ev.Latency)
	}

	if statsReset {
		if err := rec.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "journal reset")
	}
	return nil
}
