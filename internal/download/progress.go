package download

import (
	"fmt"
	"io"
)

// progressReader печатает процент скачанного по мере чтения
type progressReader struct {
	io.Reader
	Size int64

	out       io.Writer
	bytesRead int64
	lastShown int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.bytesRead += int64(n)

	if pr.Size > 0 {
		percent := pr.bytesRead * 100 / pr.Size
		if percent != pr.lastShown {
			pr.lastShown = percent
			fmt.Fprintf(pr.out, "\r📊 Прогресс: %d%% (%s из %s)", percent, formatFileSize(pr.bytesRead), formatFileSize(pr.Size))
		}
	}
	return n, err
}

// formatFileSize форматирует размер в байтах в человекочитаемый вид
func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
