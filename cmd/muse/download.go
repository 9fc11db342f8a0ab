package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hazadus/go-muse/internal/config"
	"github.com/hazadus/go-muse/internal/download"
)

var successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

// createDownloadCommand создает команду download
func (app *Application) createDownloadCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "download [YouTube URL]",
		Short: "Download audio from a YouTube video as MP3",
		Long:  `Download audio from a YouTube video and save it as an MP3 file to the download directory (the first audio directory by default).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.downloadYouTubeAudio(ctx, args[0])
		},
	}
}

// downloadYouTubeAudio скачивает аудио из YouTube видео
func (app *Application) downloadYouTubeAudio(ctx context.Context, url string) error {
	cfg, err := config.LoadConfig(app.ConfigPath)
	if err != nil {
		return err
	}

	if _, err := download.ExtractVideoID(url); err != nil {
		return err
	}

	d := download.New(download.Options{Dir: cfg.DownloadDir, Out: app.Out})
	path, err := d.Download(ctx, url)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.Out, successStyle.Render("✅ Аудио успешно скачано: "+path))
	return nil
}
