// Package metadata предоставляет функционал для извлечения метаданных из аудио файлов
package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/hazadus/go-muse/internal/audio"
)

// TrackMetadata хранит метаданные трека
type TrackMetadata struct {
	Artist string
	Title  string
	Album  string
}

// String возвращает подпись трека в виде "Artist - Title [Album]"
func (m TrackMetadata) String() string {
	label := m.Title
	if m.Artist != "" {
		label = m.Artist + " - " + label
	}
	if m.Album != "" {
		label += " [" + m.Album + "]"
	}
	return label
}

// Extractor извлекает метаданные из аудио файлов
type Extractor struct{}

// NewExtractor создает новый экстрактор метаданных
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported сообщает, может ли плеер воспроизвести файл
func (e *Extractor) Supported(filePath string) bool {
	return audio.IsSupported(filePath)
}

// Duration получает длительность аудиофайла, декодируя его заголовки
func (e *Extractor) Duration(filePath string) (time.Duration, error) {
	streamer, format, err := audio.Decode(filePath)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	length := streamer.Len()
	if length <= 0 {
		return 0, fmt.Errorf("не удалось определить длительность %s", filepath.Base(filePath))
	}
	return format.SampleRate.D(length), nil
}

// ExtractFromReader извлекает метаданные из io.Reader
func (e *Extractor) ExtractFromReader(reader io.ReadSeeker, source string) TrackMetadata {
	// Сбрасываем reader в начало
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return e.getDefaultMetadata(source)
	}

	metadata, err := tag.ReadFrom(reader)
	if err != nil {
		return e.getDefaultMetadata(source)
	}

	result := TrackMetadata{
		Artist: metadata.Artist(),
		Title:  metadata.Title(),
		Album:  metadata.Album(),
	}
	if result.Title == "" {
		fallback := e.getDefaultMetadata(source)
		result.Title = fallback.Title
		if result.Artist == "" {
			result.Artist = fallback.Artist
		}
	}
	return result
}

// ExtractFromFile извлекает метаданные из файла
func (e *Extractor) ExtractFromFile(filePath string) TrackMetadata {
	file, err := os.Open(filePath)
	if err != nil {
		return e.getDefaultMetadata(filePath)
	}
	defer file.Close()

	return e.ExtractFromReader(file, filePath)
}

// Describe возвращает подпись трека для логов "сейчас играет"
func (e *Extractor) Describe(filePath string) string {
	return e.ExtractFromFile(filePath).String()
}

// getDefaultMetadata возвращает метаданные по умолчанию на основе имени файла
func (e *Extractor) getDefaultMetadata(source string) TrackMetadata {
	fileName := filepath.Base(source)
	nameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	// Пытаемся разобрать имя файла в формате "Artist - Title"
	parts := strings.Split(nameWithoutExt, " - ")
	if len(parts) >= 2 {
		return TrackMetadata{
			Artist: strings.TrimSpace(parts[0]),
			Title:  strings.TrimSpace(strings.Join(parts[1:], " - ")),
			Album:  "",
		}
	}

	// Если не удалось разобрать, используем имя файла как название
	return TrackMetadata{
		Artist: "",
		Title:  nameWithoutExt,
		Album:  "",
	}
}
