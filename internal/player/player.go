package player

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/hazadus/go-muse/internal/audio"
)

// Speaker реализует Sink поверх beep/speaker
type Speaker struct {
	mutex         sync.Mutex
	isInitialized bool
	isPaused      bool
	sampleRate    beep.SampleRate

	ctrl    *beep.Ctrl
	current *decodedStream

	// Номер текущей отправки: callback устаревшего трека не должен отмечать новый как доигранный
	generation atomic.Uint64
	drained    atomic.Bool
	finished   chan struct{}
}

var _ Sink = (*Speaker)(nil)

// NewSpeaker создает аудиовыход. Устройство инициализируется при первой отправке трека.
func NewSpeaker() *Speaker {
	s := &Speaker{
		finished: make(chan struct{}, 1),
	}
	s.drained.Store(true)
	return s
}

// decodedStream трек, открытый через audio.Decode
type decodedStream struct {
	path     string
	streamer beep.StreamSeekCloser
	format   beep.Format
}

func (d *decodedStream) Path() string { return d.path }

func (d *decodedStream) Duration() time.Duration {
	return d.format.SampleRate.D(d.streamer.Len())
}

func (d *decodedStream) Close() error {
	return d.streamer.Close()
}

// Open декодирует файл и перематывает его на offset
func (s *Speaker) Open(path string, offset time.Duration) (Stream, error) {
	streamer, format, err := audio.Decode(path)
	if err != nil {
		return nil, err
	}

	if offset > 0 {
		pos := format.SampleRate.N(offset)
		if last := streamer.Len() - 1; pos > last {
			pos = max(last, 0)
		}
		if err := streamer.Seek(pos); err != nil {
			streamer.Close()
			return nil, fmt.Errorf("ошибка перемотки на %v: %w", offset, err)
		}
	}

	return &decodedStream{path: path, streamer: streamer, format: format}, nil
}

// Submit заменяет текущий трек и запускает воспроизведение
func (s *Speaker) Submit(st Stream) error {
	ds, ok := st.(*decodedStream)
	if !ok {
		return fmt.Errorf("поток %T открыт не этим аудиовыходом", st)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Инициализируем speaker (только один раз)
	if !s.isInitialized {
		rate := ds.format.SampleRate
		if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
			return fmt.Errorf("ошибка инициализации динамиков: %w", err)
		}
		s.sampleRate = rate
		s.isInitialized = true
	}

	s.clearLocked()

	var out beep.Streamer = ds.streamer
	if ds.format.SampleRate != s.sampleRate {
		out = beep.Resample(4, ds.format.SampleRate, s.sampleRate, ds.streamer)
	}

	gen := s.generation.Add(1)
	s.ctrl = &beep.Ctrl{Streamer: out, Paused: s.isPaused}
	s.current = ds
	s.drained.Store(false)

	// Callback вызывается из горутины speaker под его блокировкой, поэтому mutex здесь не берем
	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		if s.generation.Load() != gen {
			return
		}
		s.drained.Store(true)
		select {
		case s.finished <- struct{}{}:
		default:
		}
	})))

	return nil
}

// Pause приостанавливает воспроизведение
func (s *Speaker) Pause() {
	s.setPaused(true)
}

// Resume возобновляет воспроизведение
func (s *Speaker) Resume() {
	s.setPaused(false)
}

func (s *Speaker) setPaused(paused bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.isPaused = paused
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = paused
		speaker.Unlock()
	}
}

// Clear останавливает вывод
func (s *Speaker) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.clearLocked()
	s.isPaused = false
	s.drained.Store(true)
}

// clearLocked внутренний метод остановки (должен вызываться под мьютексом)
func (s *Speaker) clearLocked() {
	if s.current == nil {
		return
	}
	s.generation.Add(1)
	speaker.Clear()
	s.current.Close()
	s.current = nil
	s.ctrl = nil
}

// Drained сообщает, что трек доигран или еще не отправлен
func (s *Speaker) Drained() bool {
	return s.drained.Load()
}

// Finished возвращает канал сигналов о доигранных треках
func (s *Speaker) Finished() <-chan struct{} {
	return s.finished
}

// Close закрывает аудиовыход и освобождает устройство
func (s *Speaker) Close() error {
	s.Clear()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.isInitialized {
		speaker.Close()
		s.isInitialized = false
	}
	return nil
}
