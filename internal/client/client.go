// Package client отправляет команды серверу воспроизведения и при
// необходимости запускает сервер в фоне.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-muse/internal/ipc"
	"github.com/hazadus/go-muse/internal/server"
)

const (
	// DefaultReadyTimeout сколько ждать, пока запущенный сервер займет адрес
	DefaultReadyTimeout = 5 * time.Second
	readyPollInterval   = 50 * time.Millisecond
	dialTimeout         = 2 * time.Second
)

// ErrCommandFailed возвращается, если сервер ответил ошибкой
var ErrCommandFailed = errors.New("команда не выполнена")

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Spawner запускает сервер в фоне
type Spawner interface {
	Spawn(addr, configPath string) error
}

// Options настройки клиента
type Options struct {
	Addr         string
	ConfigPath   string
	ReadyTimeout time.Duration
	// Spawner по умолчанию запускает текущий исполняемый файл с командой start
	Spawner Spawner
	Out     io.Writer
	Err     io.Writer
}

func (o *Options) defaults() {
	if o.Addr == "" {
		o.Addr = server.DefaultAddr
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.Spawner == nil {
		o.Spawner = ExecSpawner{}
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
}

// Run отправляет команду серверу и печатает ответ.
// Если сервер не запущен, Stop и Status ничего не делают, остальные команды запускают сервер.
// Отмена ctx прерывает ожидание сервера и ответа.
func Run(ctx context.Context, cmd ipc.Command, opts Options) error {
	opts.defaults()

	if !server.IsRunning(opts.Addr) {
		if cmd.Kind == ipc.CommandStop || cmd.Kind == ipc.CommandStatus {
			fmt.Fprintln(opts.Out, noticeStyle.Render("Сервер не запущен"))
			return nil
		}
		if err := opts.Spawner.Spawn(opts.Addr, opts.ConfigPath); err != nil {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		if err := waitReady(ctx, opts.Addr, opts.ReadyTimeout); err != nil {
			return err
		}
	}

	resp, err := send(ctx, opts.Addr, cmd)
	if err != nil {
		return err
	}

	if !resp.OK {
		fmt.Fprintln(opts.Err, errorStyle.Render(resp.Message))
		return fmt.Errorf("%w: %s", ErrCommandFailed, resp.Message)
	}
	fmt.Fprintln(opts.Out, successStyle.Render(resp.Message))
	return nil
}

// waitReady ждет, пока сервер начнет принимать подключения.
// Адрес проверяется подключением, а не занятием: иначе проверка может помешать серверу занять адрес.
func waitReady(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("сервер не запустился за %s", timeout)
			}
			return fmt.Errorf("ожидание сервера прервано: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func send(ctx context.Context, addr string, cmd ipc.Command) (ipc.Response, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return ipc.Response{}, fmt.Errorf("ошибка подключения к серверу %s: %w", addr, err)
	}
	defer conn.Close()

	// Ответа можно ждать долго (первый Play собирает каталог), поэтому отмена закрывает соединение
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	resp, err := ipc.Exchange(conn, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return ipc.Response{}, fmt.Errorf("ожидание ответа прервано: %w", ctx.Err())
		}
		return ipc.Response{}, fmt.Errorf("ошибка обмена с сервером: %w", err)
	}
	return resp, nil
}
