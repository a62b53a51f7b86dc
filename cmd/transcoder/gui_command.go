package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"media-transcoder/internal/bootstrap"
)

func newGUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Launch the desktop application",
		Long:  "Launch the desktop application. Frontend assets are served from ./frontend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.NewFromConfigPath(ctx.configPath, nil)
			if err != nil {
				return fmt.Errorf("bootstrap app: %w", err)
			}
			return app.Run()
		},
	}
}
