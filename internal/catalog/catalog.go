// Package catalog собирает список треков из аудиодиректорий
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazadus/go-muse/internal/config"
)

// ErrNoPlayableTracks возвращается, если ни одного воспроизводимого файла не найдено
var ErrNoPlayableTracks = errors.New("не найдено ни одного воспроизводимого трека")

// ErrDirectory возвращается, если корневую директорию невозможно обойти.
// Такая ошибка также является config.ErrConfig.
var ErrDirectory = errors.New("ошибка чтения аудиодиректории")

// Track один воспроизводимый файл
type Track struct {
	Path     string
	Duration time.Duration
}

// Prober определяет, поддерживается ли файл, и узнает его длительность
type Prober interface {
	Supported(path string) bool
	Duration(path string) (time.Duration, error)
}

// Options настройки сборки каталога
type Options struct {
	// Shuffle перемешивает треки вместо сортировки по пути
	Shuffle bool
	// Permute переставляет элементы при Shuffle. По умолчанию rand.Shuffle.
	Permute func(n int, swap func(i, j int))
	Logger  zerolog.Logger
}

// Catalog упорядоченный список треков и их общая длительность
type Catalog struct {
	Tracks []Track
	Total  time.Duration
}

// Discover рекурсивно обходит директории и собирает воспроизводимые треки.
// Неподдерживаемые и нечитаемые файлы пропускаются с предупреждением.
func Discover(dirs []string, prober Prober, opts Options) (*Catalog, error) {
	logger := opts.Logger
	var tracks []Track

	for _, root := range dirs {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				logger.Warn().Err(err).Str("path", path).Msg("пропускаем нечитаемый путь")
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			if !prober.Supported(path) {
				logger.Debug().Str("path", path).Msg("пропускаем неподдерживаемый файл")
				return nil
			}

			duration, err := prober.Duration(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("не удалось прочитать трек")
				return nil
			}
			if duration <= 0 {
				logger.Warn().Str("path", path).Msg("трек нулевой длительности")
				return nil
			}

			tracks = append(tracks, Track{Path: path, Duration: duration})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w %s: %v", config.ErrConfig, ErrDirectory, root, err)
		}
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w в %s", ErrNoPlayableTracks, describeDirs(dirs))
	}

	order(tracks, opts)

	c := &Catalog{Tracks: tracks}
	for _, t := range tracks {
		c.Total += t.Duration
	}
	if c.Total == 0 {
		return nil, ErrNoPlayableTracks
	}

	logger.Info().
		Int("tracks", len(tracks)).
		Dur("total", c.Total).
		Bool("shuffle", opts.Shuffle).
		Msg("каталог собран")
	return c, nil
}

// order применяет политику порядка: случайная перестановка или сортировка по пути без учета регистра
func order(tracks []Track, opts Options) {
	if opts.Shuffle {
		permute := opts.Permute
		if permute == nil {
			permute = rand.Shuffle
		}
		permute(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
		return
	}

	slices.SortStableFunc(tracks, func(a, b Track) int {
		return strings.Compare(strings.ToLower(a.Path), strings.ToLower(b.Path))
	})
}

func describeDirs(dirs []string) string {
	if len(dirs) == 0 {
		return "(аудиодиректории не заданы)"
	}
	return strings.Join(dirs, ", ")
}

// Len возвращает количество треков
func (c *Catalog) Len() int {
	return len(c.Tracks)
}

// ResumePoint переводит абсолютную позицию в каталоге в номер трека и смещение внутри него.
// Позиция больше общей длительности сворачивается по модулю.
func (c *Catalog) ResumePoint(start time.Duration) (int, time.Duration) {
	if c.Total <= 0 || len(c.Tracks) == 0 {
		return 0, 0
	}

	offset := Wrap(start, c.Total)
	for i, t := range c.Tracks {
		if offset < t.Duration {
			return i, offset
		}
		offset -= t.Duration
	}
	// Недостижимо при Total == Σ Duration
	return 0, 0
}

// Wrap сворачивает позицию по модулю общей длительности
func Wrap(position, total time.Duration) time.Duration {
	if total <= 0 {
		return 0
	}
	position %= total
	if position < 0 {
		position += total
	}
	return position
}
