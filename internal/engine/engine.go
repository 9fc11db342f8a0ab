// Package engine реализует движок воспроизведения: состояние плеера,
// фоновый секвенсор треков и учет позиции для возобновления.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazadus/go-muse/internal/catalog"
	"github.com/hazadus/go-muse/internal/config"
	"github.com/hazadus/go-muse/internal/player"
	"github.com/hazadus/go-muse/internal/utils"
)

var (
	// ErrAlreadyPlaying возвращается Play во время воспроизведения
	ErrAlreadyPlaying = errors.New("музыка уже играет")
	// ErrNotPlaying возвращается Pause, если ничего не играет
	ErrNotPlaying = errors.New("музыка не играет")
)

// DefaultPollInterval период проверки, доигран ли текущий трек
const DefaultPollInterval = 250 * time.Millisecond

// Status состояние воспроизведения
type Status int

const (
	Idle Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "играет"
	case Paused:
		return "на паузе"
	default:
		return "остановлено"
	}
}

// State снимок состояния воспроизведения
type State struct {
	CurrentTrack int
	Uptime       time.Duration
	StartTime    time.Time
	Status       Status
	Tracks       int
	Total        time.Duration
	TrackPath    string
}

// ConfigStore источник конфигурации с обратной записью позиции
type ConfigStore interface {
	Load() (*config.Config, error)
	SaveStartPoint(seconds int) error
}

// Options настройки движка
type Options struct {
	PollInterval time.Duration
	// Clock источник текущего времени, по умолчанию time.Now
	Clock func() time.Time
	// Permute перестановка при randomize_tracks, по умолчанию rand.Shuffle
	Permute func(n int, swap func(i, j int))
	// Describe подпись трека для логов
	Describe func(path string) string
	Logger   zerolog.Logger
}

// Engine движок воспроизведения.
// Все поля состояния защищены mu; mu никогда не держится во время Sink.Open и Sink.Submit.
type Engine struct {
	mu sync.Mutex
	// submitMu упорядочивает Sink.Submit секвенсора и Sink.Clear в Stop. Берется до mu.
	submitMu sync.Mutex

	status       Status
	currentTrack int
	pos          position

	// pendingOffset смещение внутри первого трека после (пере)запуска секвенсора
	pendingOffset time.Duration

	cfg     *config.Config
	catalog *catalog.Catalog

	cancel context.CancelFunc
	wg     sync.WaitGroup

	sink   player.Sink
	store  ConfigStore
	prober catalog.Prober

	pollInterval time.Duration
	now          func() time.Time
	permute      func(n int, swap func(i, j int))
	describe     func(path string) string
	logger       zerolog.Logger
}

// New создает движок в состоянии Idle. Каталог строится при первом Play.
func New(sink player.Sink, store ConfigStore, prober catalog.Prober, opts Options) *Engine {
	e := &Engine{
		sink:         sink,
		store:        store,
		prober:       prober,
		pollInterval: opts.PollInterval,
		now:          opts.Clock,
		permute:      opts.Permute,
		describe:     opts.Describe,
		logger:       opts.Logger,
	}
	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.describe == nil {
		e.describe = filepath.Base
	}
	return e
}

// Play запускает или возобновляет воспроизведение
func (e *Engine) Play() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case Playing:
		return "", ErrAlreadyPlaying
	case Paused:
		e.sink.Resume()
		e.pos.resume(e.now())
		e.status = Playing
		e.logger.Info().Dur("uptime", e.pos.uptime).Msg("воспроизведение возобновлено")
		return fmt.Sprintf("▶️  Воспроизведение возобновлено с %s", utils.FormatDuration(e.pos.uptime)), nil
	}

	if e.catalog == nil {
		if err := e.loadCatalogLocked(); err != nil {
			e.logger.Error().Err(err).Msg("не удалось собрать каталог")
			return "", err
		}
	}

	index, offset := e.catalog.ResumePoint(e.pos.uptime)
	e.currentTrack = index
	e.pendingOffset = offset
	e.status = Playing
	e.pos.resume(e.now())
	e.startSequencerLocked()

	e.logger.Info().
		Int("track", index).
		Dur("offset", offset).
		Dur("uptime", e.pos.uptime).
		Msg("воспроизведение запущено")

	return fmt.Sprintf("▶️  Играет %d треков (%s), старт с %s",
		e.catalog.Len(), utils.FormatDuration(e.catalog.Total), utils.FormatDuration(e.pos.uptime)), nil
}

// loadCatalogLocked читает конфигурацию и строит каталог (под мьютексом).
// При ошибке состояние не меняется, следующий Play попробует снова.
func (e *Engine) loadCatalogLocked() error {
	cfg, err := e.store.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c, err := catalog.Discover(cfg.AudioDirectories, e.prober, catalog.Options{
		Shuffle: cfg.RandomizeTracks,
		Permute: e.permute,
		Logger:  e.logger,
	})
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.catalog = c
	e.pos = position{uptime: catalog.Wrap(time.Duration(cfg.StartPoint)*time.Second, c.Total)}
	return nil
}

// Pause приостанавливает воспроизведение и возвращает накопленное время
func (e *Engine) Pause() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != Playing {
		return "", ErrNotPlaying
	}

	e.pos.fold(e.now())
	e.sink.Pause()
	e.status = Paused

	e.logger.Info().Dur("uptime", e.pos.uptime).Msg("воспроизведение на паузе")
	return fmt.Sprintf("⏸️  Пауза на %s", utils.FormatDuration(e.pos.uptime)), nil
}

// Stop останавливает воспроизведение. При persist позиция записывается в конфигурацию.
func (e *Engine) Stop(persist bool) string {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.pos.fold(e.now())
	e.status = Idle
	e.mu.Unlock()

	// Трек, отправленный секвенсором до отмены, тоже снимается с вывода
	e.submitMu.Lock()
	e.sink.Clear()
	e.submitMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	msg := fmt.Sprintf("⏹️  Остановлено на %s", utils.FormatDuration(e.pos.uptime))
	if !persist || e.catalog == nil {
		return msg
	}

	offset := e.pos.resumeOffset(e.catalog.Total, e.cfg.ResumePlayback)
	seconds := int(offset / time.Second)
	if err := e.store.SaveStartPoint(seconds); err != nil {
		e.logger.Error().Err(err).Int("start_point", seconds).Msg("не удалось сохранить позицию")
		return msg + " (позиция не сохранена)"
	}
	e.cfg.StartPoint = seconds

	e.logger.Info().
		Int("start_point", seconds).
		Msg("позиция сохранена: " + utils.FormatDurationFromSeconds(seconds))
	return msg
}

// Snapshot возвращает текущее состояние
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		CurrentTrack: e.currentTrack,
		Uptime:       e.pos.current(e.now()),
		StartTime:    e.pos.startTime,
		Status:       e.status,
	}
	if e.catalog != nil {
		st.Tracks = e.catalog.Len()
		st.Total = e.catalog.Total
		st.TrackPath = e.catalog.Tracks[e.currentTrack].Path
	}
	return st
}

// Status возвращает текстовое описание состояния
func (e *Engine) Status() string {
	st := e.Snapshot()
	if st.Tracks == 0 {
		return "Каталог еще не загружен, воспроизведение " + st.Status.String()
	}
	return fmt.Sprintf("%s [%d/%d] %s, %s из %s",
		statusIcon(st.Status),
		st.CurrentTrack+1, st.Tracks,
		e.describe(st.TrackPath),
		utils.FormatDuration(catalog.Wrap(st.Uptime, st.Total)),
		utils.FormatDuration(st.Total))
}

func statusIcon(s Status) string {
	switch s {
	case Playing:
		return "▶️"
	case Paused:
		return "⏸️"
	default:
		return "⏹️"
	}
}

// Wait ждет завершения всех фоновых секвенсоров
func (e *Engine) Wait() {
	e.wg.Wait()
}
