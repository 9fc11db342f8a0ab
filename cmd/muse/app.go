package main

import (
	"io"
	"os"

	"github.com/hazadus/go-muse/internal/client"
	"github.com/hazadus/go-muse/internal/config"
	"github.com/hazadus/go-muse/internal/player"
	"github.com/hazadus/go-muse/internal/server"
)

// Application общие настройки всех команд
type Application struct {
	Addr       string
	ConfigPath string
	// LogPath журнал сервера, пустой путь означает путь по умолчанию
	LogPath string

	// Spawner запускает сервер для клиентских команд, nil означает текущий исполняемый файл
	Spawner client.Spawner
	// NewSink создает аудиовыход сервера
	NewSink func() (player.Sink, io.Closer)

	Out io.Writer
	Err io.Writer
}

// NewApplication создает приложение с настройками по умолчанию
func NewApplication() *Application {
	return &Application{
		Addr:       server.DefaultAddr,
		ConfigPath: config.DefaultPath(),
		NewSink: func() (player.Sink, io.Closer) {
			s := player.NewSpeaker()
			return s, s
		},
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

func (app *Application) clientOptions() client.Options {
	return client.Options{
		Addr:       app.Addr,
		ConfigPath: app.ConfigPath,
		Spawner:    app.Spawner,
		Out:        app.Out,
		Err:        app.Err,
	}
}
