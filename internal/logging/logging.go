// Package logging настраивает журнал сервера
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
)

// DefaultPath возвращает путь к журналу сервера, создавая недостающие директории
func DefaultPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join("muse", "server.log"))
	if err != nil {
		return "", fmt.Errorf("ошибка определения пути журнала: %w", err)
	}
	return path, nil
}

// Options настройки журнала
type Options struct {
	// Path файл журнала, по умолчанию DefaultPath
	Path string
	// Verbose включает отладочные сообщения и дублирует журнал в Console
	Verbose bool
	Console io.Writer
}

// New открывает файл журнала и создает логгер.
// Возвращенный io.Closer закрывает файл.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	path := opts.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return zerolog.Nop(), nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("ошибка создания директории журнала: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("ошибка открытия журнала: %w", err)
	}

	var w io.Writer = file
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		w = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, file, nil
}
