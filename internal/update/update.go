// Package update обновляет установленную программу через go install
package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Package путь установки последней версии
const Package = "github.com/hazadus/go-muse/cmd/muse@latest"

// ErrGoNotFound возвращается, если инструментарий Go не установлен
var ErrGoNotFound = errors.New("команда go не найдена, обновление невозможно")

// Updater запускает go install
type Updater struct {
	// GoBinary путь к go, по умолчанию ищется в PATH
	GoBinary string
	Out      io.Writer
	Err      io.Writer
}

// Update устанавливает последнюю версию
func (u Updater) Update(ctx context.Context) error {
	goBin := u.GoBinary
	if goBin == "" {
		var err error
		if goBin, err = exec.LookPath("go"); err != nil {
			return ErrGoNotFound
		}
	}

	cmd := exec.CommandContext(ctx, goBin, "install", Package)
	cmd.Stdout = u.Out
	cmd.Stderr = u.Err
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ошибка обновления %s: %w", Package, err)
	}
	return nil
}
