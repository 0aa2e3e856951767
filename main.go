// Command megacli is a terminal chat client for several AI providers with a
// looping ASCII video playing behind the conversation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/njyeung/megacli/backend"
	"github.com/njyeung/megacli/logging"
	"github.com/njyeung/megacli/player"
	"github.com/njyeung/megacli/tui"
)

type options struct {
	provider  string
	video     string
	palette   string
	opacity   float64
	queueSize int
	configDir string
	debug     bool
}

func main() {
	defaults := backend.DefaultSettings()
	opts := &options{}
	logCfg := logging.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "megacli",
		Short: "Multi-AI terminal chatbot with an animated background",
		Long: `megacli chats with Claude, Grok, GPT or Gemini while a video loops behind
the conversation as dimmed ASCII art. Settings are read from megacli.conf in
the config directory; flags override them.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, logCfg)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.provider, "provider", "p", defaults.Provider, "AI provider (claude, grok, gpt, gemini)")
	flags.Float64VarP(&opts.opacity, "opacity", "o", defaults.Opacity, "video background opacity (0.0 - 1.0)")
	flags.StringVar(&opts.video, "video", defaults.Video, "video or GIF to loop in the background")
	flags.StringVar(&opts.palette, "palette", defaults.Palette, "glyph ramp: ascii, blocks, or a custom light-to-dense string")
	flags.IntVar(&opts.queueSize, "queue-size", defaults.QueueSize, "decoded frames buffered ahead of the display")
	flags.StringVar(&opts.configDir, "config-dir", backend.DefaultConfigDir(), "directory holding megacli.conf, history and logs")
	flags.BoolVar(&opts.debug, "debug", false, "show background decoder stats in the footer")
	logCfg.RegisterFlags(rootCmd.PersistentFlags())

	if err := logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// settings merges megacli.conf with the flags the user actually passed
func (o *options) settings(cmd *cobra.Command) backend.Settings {
	s := backend.LoadSettings(o.configDir)

	flags := cmd.Flags()
	if flags.Changed("provider") {
		s.Provider = o.provider
	}
	if flags.Changed("opacity") {
		s.Opacity = o.opacity
	}
	if flags.Changed("video") {
		s.Video = o.video
	}
	if flags.Changed("palette") {
		s.Palette = o.palette
	}
	if flags.Changed("queue-size") {
		s.QueueSize = o.queueSize
	}
	return s
}

func loadEnv(configDir string) {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", path, err)
		}
	}
}

func run(cmd *cobra.Command, opts *options, logCfg *logging.Config) error {
	if err := backend.InitConfigDir(opts.configDir); err != nil {
		return err
	}
	loadEnv(opts.configDir)

	logFile, err := logCfg.OpenFile(filepath.Join(opts.configDir, "megacli.log"))
	if err != nil {
		return err
	}
	defer logFile.Close()

	handler, err := logCfg.NewHandler(logFile)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))

	settings := opts.settings(cmd)

	provider, err := backend.ParseProvider(settings.Provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unknown provider: %s. Using Claude.\n", settings.Provider)
	}

	cfg := tui.Config{
		Provider: provider,
		Debug:    opts.debug,
		Logger:   slog.Default(),
	}

	store, err := backend.OpenStore(opts.configDir)
	if err != nil {
		slog.Error("chat history unavailable, conversations will not be saved", "error", err)
	} else {
		cfg.History = store
	}

	cols, rows := player.TargetGrid()
	cfg.Width, cfg.Height = cols, rows

	bg, err := player.NewBackgroundVideo(settings.Video, cols, rows, settings.Opacity,
		player.WithPalette(player.PaletteByName(settings.Palette)),
		player.WithQueueSize(settings.QueueSize),
		player.WithLogger(slog.Default()),
	)
	if err != nil {
		slog.Error("running without background", "video", settings.Video, "error", err)
		if errors.Is(err, player.ErrUnopenable) {
			fmt.Fprintf(os.Stderr, "Warning: could not open %s, running without background\n", settings.Video)
		}
	} else {
		defer bg.Close()
		cfg.Background = bg
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := tea.NewProgram(tui.NewModel(ctx, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	fmt.Println("Thanks for using MEGA-CLI! 👋")
	return nil
}
