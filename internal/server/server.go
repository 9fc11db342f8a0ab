// Package server содержит сервер воспроизведения: проверку единственного
// экземпляра, прием команд по TCP и их последовательное выполнение.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hazadus/go-muse/internal/ipc"
)

// DefaultAddr адрес сервера по умолчанию
const DefaultAddr = "127.0.0.1:1234"

// ErrAlreadyRunning возвращается, если адрес уже занят другим сервером
var ErrAlreadyRunning = errors.New("сервер уже запущен")

// Engine команды движка воспроизведения, доступные по сети
type Engine interface {
	Play() (string, error)
	Pause() (string, error)
	Stop(persist bool) string
	Status() string
}

// IsRunning проверяет, занят ли адрес, пробуя его занять
func IsRunning(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return true
	}
	ln.Close()
	return false
}

// Server принимает подключения клиентов по одному
type Server struct {
	listener  net.Listener
	logger    zerolog.Logger
	closeOnce sync.Once
}

// Listen занимает адрес. Пока адрес занят, второй сервер не запустится.
func Listen(addr string, logger zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w на %s: %v", ErrAlreadyRunning, addr, err)
	}
	logger.Info().Str("addr", ln.Addr().String()).Msg("адрес занят сервером")
	return &Server{listener: ln, logger: logger}, nil
}

// Addr возвращает фактический адрес сервера
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close освобождает адрес
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.listener.Close()
	})
	return err
}

// Serve принимает подключения и выполняет команды до команды Stop
// или отмены контекста. В обоих случаях позиция сохраняется.
func (s *Server) Serve(ctx context.Context, engine Engine) error {
	defer s.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	s.logger.Info().Msg("сервер принимает команды")
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				msg := engine.Stop(true)
				s.logger.Info().Str("result", msg).Msg("получен сигнал завершения")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error().Err(err).Msg("ошибка приема подключения")
			continue
		}

		if stop := s.handle(conn, engine); stop {
			s.logger.Info().Msg("сервер остановлен командой Stop")
			return nil
		}
	}
}

// handle читает одну команду, выполняет ее и отвечает.
// Возвращает true, если сервер должен завершиться.
func (s *Server) handle(conn net.Conn, engine Engine) bool {
	defer conn.Close()

	cmd, err := ipc.ReadCommand(conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.logger.Debug().Msg("клиент отключился без команды")
			return false
		}
		s.logger.Warn().Err(err).Msg("некорректная команда")
		if werr := ipc.WriteResponse(conn, ipc.Failure(err.Error())); werr != nil {
			s.logger.Debug().Err(werr).Msg("не удалось ответить клиенту")
		}
		return false
	}

	resp, stop := dispatch(cmd, engine)

	event := s.logger.Info()
	if !resp.OK {
		event = s.logger.Warn()
	}
	event.Str("command", cmd.Kind.String()).Bool("ok", resp.OK).Msg(resp.Message)

	if err := ipc.WriteResponse(conn, resp); err != nil {
		s.logger.Warn().Err(err).Msg("ошибка отправки ответа")
	}
	return stop
}

// dispatch выполняет команду на движке
func dispatch(cmd ipc.Command, engine Engine) (ipc.Response, bool) {
	switch cmd.Kind {
	case ipc.CommandPlay:
		return result(engine.Play())
	case ipc.CommandPause:
		return result(engine.Pause())
	case ipc.CommandStop:
		return ipc.Success(engine.Stop(true)), true
	case ipc.CommandStatus:
		return ipc.Success(engine.Status()), false
	default:
		return ipc.Failure(fmt.Sprintf("команда %s выполняется клиентом, а не сервером", cmd.Kind)), false
	}
}

func result(msg string, err error) (ipc.Response, bool) {
	if err != nil {
		return ipc.Failure(err.Error()), false
	}
	return ipc.Success(msg), false
}
