// Package player содержит компоненты для управления воспроизведением аудио
package player

import "time"

// Stream декодированный трек, готовый к отправке в Sink
type Stream interface {
	Path() string
	Duration() time.Duration
	Close() error
}

// Sink абстракция аудиовыхода.
//
// Open может быть медленным (декодирование и перемотка) и не трогает текущее
// воспроизведение. Остальные методы быстрые.
type Sink interface {
	// Open декодирует трек и перематывает его на offset
	Open(path string, offset time.Duration) (Stream, error)
	// Submit заменяет текущий трек и начинает его воспроизведение
	Submit(s Stream) error
	Pause()
	Resume()
	// Clear останавливает вывод и освобождает текущий трек
	Clear()
	// Drained сообщает, что текущий трек доигран или трека нет
	Drained() bool
	// Finished получает сигнал каждый раз, когда трек доигран до конца
	Finished() <-chan struct{}
}
