package main

import (
	"context"

	"github.com/spf13/cobra"
)

// createRootCommand создает корневую команду с настроенными подкомандами
func (app *Application) createRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "muse",
		Short: "Background music player for your local audio collection",
		Long: `muse plays tracks from the configured audio directories in a background server.
Client commands start the server automatically when needed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&app.Addr, "addr", app.Addr, "server address")
	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config", app.ConfigPath, "path to the configuration file")

	// Добавляем команды, передавая в них экземпляр приложения и контекст
	rootCmd.AddCommand(app.createPlayCommand(ctx))
	rootCmd.AddCommand(app.createPauseCommand(ctx))
	rootCmd.AddCommand(app.createStopCommand(ctx))
	rootCmd.AddCommand(app.createStatusCommand(ctx))
	rootCmd.AddCommand(app.createStartCommand(ctx))
	rootCmd.AddCommand(app.createDownloadCommand(ctx))
	rootCmd.AddCommand(app.createUpdateCommand(ctx))

	return rootCmd
}
