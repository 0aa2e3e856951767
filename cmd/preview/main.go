// Command preview plays a video as a full-screen ASCII background, without
// the chat, to check how a clip and palette look.
package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/njyeung/megacli/logging"
	"github.com/njyeung/megacli/player"
	"github.com/njyeung/megacli/tui"
)

func main() {
	var (
		opacity   float64
		palette   string
		queueSize int
		noPacing  bool
	)
	logCfg := logging.NewConfig()

	rootCmd := &cobra.Command{
		Use:           "preview [flags] <video>",
		Short:         "Play a video as a looping ASCII background",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			// the screen belongs to the video, so logs only go to --log-file
			logger := slog.New(slog.DiscardHandler)
			if logCfg.File != "" {
				f, err := logCfg.OpenFile(logCfg.File)
				if err != nil {
					return err
				}
				defer f.Close()

				handler, err := logCfg.NewHandler(f)
				if err != nil {
					return err
				}
				logger = slog.New(handler)
			}

			cols, rows := player.TargetGrid()
			bg, err := player.NewBackgroundVideo(args[0], cols, rows, opacity,
				player.WithPalette(player.PaletteByName(palette)),
				player.WithQueueSize(queueSize),
				player.WithPacing(!noPacing),
				player.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			defer bg.Close()

			fmt.Printf("Playing %s at %dx%d\n", args[0], cols, rows)

			p := tea.NewProgram(tui.NewPreviewModel(bg, cols, rows), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return err
			}

			s := bg.Stats()
			fmt.Printf("frames %d, restarts %d, faults %d\n", s.Published, s.Restarts, s.Faults)
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.Float64VarP(&opacity, "opacity", "o", 1.0, "brightness of the video (0.0 - 1.0)")
	flags.StringVar(&palette, "palette", "ascii", "glyph ramp: ascii, blocks, or a custom light-to-dense string")
	flags.IntVar(&queueSize, "queue-size", player.DefaultQueueSize, "decoded frames buffered ahead of the display")
	flags.BoolVar(&noPacing, "no-pacing", false, "decode as fast as the display consumes instead of at the native frame rate")
	logCfg.Level = "warn"
	logCfg.RegisterFlags(rootCmd.PersistentFlags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
