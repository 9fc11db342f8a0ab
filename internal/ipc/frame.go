// Package ipc реализует протокол обмена командами между клиентом и сервером muse
//
// Каждое сообщение на проводе имеет вид [1 байт длины][payload], payload это
// сериализованная команда или ответ. Максимальный размер payload 255 байт.
package ipc

import (
	"errors"
	"fmt"
	"io"
)

// MaxPayload максимальный размер полезной нагрузки одного кадра
const MaxPayload = 255

var (
	// ErrPayloadTooLarge возвращается, если данные не помещаются в один кадр
	ErrPayloadTooLarge = errors.New("сообщение не помещается в кадр")
	// ErrProtocol возвращается при получении некорректного кадра
	ErrProtocol = errors.New("ошибка протокола")
)

// WriteFrame записывает payload одним кадром
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d байт (максимум %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}

	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(len(payload)))
	frame = append(frame, payload...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("ошибка записи кадра: %w", err)
	}
	return nil
}

// ReadFrame читает ровно один кадр и возвращает его payload.
// Если соединение закрыто до байта длины, возвращается io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [1]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("ошибка чтения длины кадра: %w", err)
	}

	payload := make([]byte, int(header[0]))
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: кадр обрезан, ожидалось %d байт", ErrProtocol, len(payload))
		}
		return nil, fmt.Errorf("ошибка чтения кадра: %w", err)
	}
	return payload, nil
}
