package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-muse/internal/update"
)

// createUpdateCommand создает команду update
func (app *Application) createUpdateCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Install the latest version with go install",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintf(app.Out, "Устанавливаем %s\n", update.Package)
			if err := (update.Updater{Out: app.Out, Err: app.Err}).Update(ctx); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, successStyle.Render("✅ Обновление установлено"))
			return nil
		},
	}
}
