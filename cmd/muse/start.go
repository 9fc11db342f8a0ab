package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-muse/internal/config"
	"github.com/hazadus/go-muse/internal/engine"
	"github.com/hazadus/go-muse/internal/logging"
	"github.com/hazadus/go-muse/internal/metadata"
	"github.com/hazadus/go-muse/internal/server"
)

// createStartCommand создает команду start, которая запускает сервер в текущем процессе
func (app *Application) createStartCommand(ctx context.Context) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the playback server in the foreground",
		Long: `Run the playback server. Client commands run it in the background automatically,
so this is mostly useful with --verbose for debugging.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.runServer(ctx, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also log to the terminal, including debug messages")

	return cmd
}

func (app *Application) runServer(ctx context.Context, verbose bool) error {
	logger, logFile, err := logging.New(logging.Options{Path: app.LogPath, Verbose: verbose, Console: app.Err})
	if err != nil {
		return err
	}
	defer logFile.Close()

	// Адрес занимается до создания движка: второй сервер завершится здесь
	srv, err := server.Listen(app.Addr, logger)
	if err != nil {
		logger.Error().Err(err).Msg("сервер не запущен")
		return err
	}
	defer srv.Close()

	created, err := config.EnsureFile(app.ConfigPath)
	if err != nil {
		return err
	}
	if created {
		logger.Info().Str("path", app.ConfigPath).Msg("создан файл конфигурации по умолчанию")
	}

	sink, closer := app.NewSink()
	defer closer.Close()

	extractor := metadata.NewExtractor()
	eng := engine.New(sink, config.NewStore(app.ConfigPath), extractor, engine.Options{
		Describe: extractor.Describe,
		Logger:   logger,
	})

	logger.Info().Str("config", app.ConfigPath).Msg("сервер запущен")
	if err := srv.Serve(ctx, eng); err != nil {
		return fmt.Errorf("ошибка работы сервера: %w", err)
	}
	eng.Wait()

	logger.Info().Msg("сервер завершен")
	return nil
}
