package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-muse/internal/client"
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

func main() {
	// SIGINT и SIGTERM отменяют контекст: сервер сохраняет позицию и завершается
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApplication()
	if err := app.createRootCommand(ctx).Execute(); err != nil {
		// Ответ сервера с ошибкой клиент уже напечатал
		if !errors.Is(err, client.ErrCommandFailed) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		}
		stop()
		os.Exit(1)
	}
}
