package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-muse/internal/client"
	"github.com/hazadus/go-muse/internal/ipc"
)

// createPlayCommand создает команду play
func (app *Application) createPlayCommand(ctx context.Context) *cobra.Command {
	return app.createControlCommand(ctx, ipc.Play, "play", "Start or resume playback")
}

// createPauseCommand создает команду pause
func (app *Application) createPauseCommand(ctx context.Context) *cobra.Command {
	return app.createControlCommand(ctx, ipc.Pause, "pause", "Pause playback")
}

// createStopCommand создает команду stop
func (app *Application) createStopCommand(ctx context.Context) *cobra.Command {
	return app.createControlCommand(ctx, ipc.Stop, "stop", "Stop playback, save the position and shut the server down")
}

// createStatusCommand создает команду status
func (app *Application) createStatusCommand(ctx context.Context) *cobra.Command {
	return app.createControlCommand(ctx, ipc.Status, "status", "Show the current track and position")
}

// createControlCommand команда, которая пересылает ipc-команду серверу
func (app *Application) createControlCommand(ctx context.Context, command ipc.Command, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return client.Run(ctx, command, app.clientOptions())
		},
	}
}
