package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"minos/internal/screen"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Boot the machine with a full-screen terminal view",
		Long: "Boot the machine and render its text framebuffer in the current " +
			"terminal. Keystrokes feed the emulated keyboard; Ctrl-\\ detaches.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			if flagLogFile == "" {
				// The terminal belongs to the screen; stray log lines
				// would corrupt it.
				log.SetOutput(io.Discard)
			}

			opts, err := loadOptions()
			if err != nil {
				return err
			}

			bell := screen.NewBellWriter(nil)
			m, err := bootMachine(opts, bell, log)
			if err != nil {
				return err
			}
			defer m.Close()

			scr, err := screen.New(screen.Config{
				VRAM:     m.VRAM(),
				CRTC:     m.CRTC(),
				Keyboard: m.Keyboard(),
				Log:      log,
			})
			if err != nil {
				return fmt.Errorf("screen: %w", err)
			}
			bell.SetBeeper(scr.Beep)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				<-m.RebootRequests()
				cancel()
			}()

			if err := scr.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Println(color.YellowString("reboot requested, shutting down"))
					return nil
				}
				return err
			}
			return nil
		},
	}
}
