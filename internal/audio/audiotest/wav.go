// Package audiotest содержит помощники для тестов, которым нужны настоящие аудиофайлы
package audiotest

import (
	"encoding/binary"
	"os"
	"testing"
	"time"
)

// SampleRate частота дискретизации файлов, создаваемых WriteWAV
const SampleRate = 8000

// WriteWAV записывает тихий моно 16-битный PCM WAV заданной длительности
func WriteWAV(tb testing.TB, path string, d time.Duration) {
	tb.Helper()

	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	samples := int(d.Seconds() * SampleRate)
	dataSize := samples * blockAlign

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, SampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, SampleRate*blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0644); err != nil {
		tb.Fatalf("Ошибка записи WAV файла: %v", err)
	}
}
