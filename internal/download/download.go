// Package download скачивает аудио с YouTube в аудиодиректорию
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// ErrFFmpegNotFound возвращается, если ffmpeg не установлен
var ErrFFmpegNotFound = errors.New("ffmpeg не найден, установите его и повторите")

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com/v/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com/shorts/)([a-zA-Z0-9_-]{11})`),
	}
	bareVideoID     = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	forbiddenInName = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

const maxFileNameBytes = 200

// Options настройки загрузчика
type Options struct {
	// Dir директория для готовых MP3
	Dir string
	// FFmpeg путь к ffmpeg, по умолчанию ищется в PATH
	FFmpeg string
	Out    io.Writer
}

// Downloader скачивает аудиодорожку видео и перекодирует ее в MP3
type Downloader struct {
	client youtube.Client
	dir    string
	ffmpeg string
	out    io.Writer
}

// New создает загрузчик
func New(opts Options) *Downloader {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Downloader{
		client: youtube.Client{HTTPClient: newHTTPClient()},
		dir:    opts.Dir,
		ffmpeg: opts.FFmpeg,
		out:    out,
	}
}

// Download скачивает аудио по URL и возвращает путь к готовому MP3
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	videoID, err := ExtractVideoID(url)
	if err != nil {
		return "", err
	}

	ffmpeg := d.ffmpeg
	if ffmpeg == "" {
		if ffmpeg, err = exec.LookPath("ffmpeg"); err != nil {
			return "", ErrFFmpegNotFound
		}
	}

	fmt.Fprintf(d.out, "Скачиваем аудио для видео ID: %s\n", videoID)

	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("ошибка получения информации о видео: %w", err)
	}
	fmt.Fprintf(d.out, "Название: %s\nАвтор: %s\n", video.Title, video.Author)

	format := findBestAudioFormat(video.Formats)
	if format == nil {
		return "", errors.New("аудио формат не найден")
	}
	fmt.Fprintf(d.out, "Используем формат: itag=%d, %s\n", format.ItagNo, format.MimeType)

	stream, size, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("ошибка получения потока: %w", err)
	}
	defer stream.Close()

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории: %w", err)
	}

	// Временный файл начинается с точки, чтобы не попасть в каталог до перекодирования
	tmp, err := os.CreateTemp(d.dir, ".muse-*.part")
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	progress := &progressReader{Reader: stream, Size: size, out: d.out}
	if _, err := io.Copy(tmp, progress); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ошибка скачивания: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ошибка записи временного файла: %w", err)
	}
	fmt.Fprintln(d.out)

	target := filepath.Join(d.dir, sanitizeFileName(video.Title)+".mp3")
	if err := transcode(ctx, ffmpeg, tmp.Name(), target); err != nil {
		return "", err
	}
	return target, nil
}

// transcode перекодирует файл в MP3 с помощью ffmpeg
func transcode(ctx context.Context, ffmpeg, src, dst string) error {
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y", "-loglevel", "error",
		"-i", src,
		"-vn", "-codec:a", "libmp3lame", "-q:a", "2",
		dst)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ошибка перекодирования в MP3: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractVideoID извлекает ID видео из различных форматов YouTube URL
func ExtractVideoID(url string) (string, error) {
	for _, re := range videoIDPatterns {
		if matches := re.FindStringSubmatch(url); len(matches) > 1 {
			return matches[1], nil
		}
	}

	// Если это просто ID видео (11 символов)
	if bareVideoID.MatchString(url) {
		return url, nil
	}

	return "", fmt.Errorf("не удалось извлечь ID видео из URL: %s", url)
}

// findBestAudioFormat выбирает формат только со звуком с наибольшим битрейтом.
// Если таких нет, подойдет видео со звуком.
func findBestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		format := &formats[i]
		if format.AudioChannels == 0 || !strings.HasPrefix(format.MimeType, "audio/") {
			continue
		}
		if best == nil || format.Bitrate > best.Bitrate {
			best = format
		}
	}
	if best != nil {
		return best
	}

	for i := range formats {
		if formats[i].AudioChannels > 0 {
			return &formats[i]
		}
	}
	return nil
}

// sanitizeFileName очищает имя файла от недопустимых символов
func sanitizeFileName(name string) string {
	name = forbiddenInName.ReplaceAllString(name, "_")
	name = strings.Trim(strings.TrimSpace(name), ".")
	if len(name) > maxFileNameBytes {
		name = strings.ToValidUTF8(name[:maxFileNameBytes], "")
	}
	if name == "" {
		return "track"
	}
	return name
}
