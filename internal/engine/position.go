package engine

import (
	"time"

	"github.com/hazadus/go-muse/internal/catalog"
)

// position накапливает время воспроизведения между паузами.
// uptime это абсолютная позиция в зацикленном каталоге.
type position struct {
	uptime    time.Duration
	startTime time.Time
	running   bool
}

// resume отмечает момент начала или возобновления воспроизведения
func (p *position) resume(now time.Time) {
	p.startTime = now
	p.running = true
}

// fold добавляет к uptime время, прошедшее с последнего resume
func (p *position) fold(now time.Time) {
	if !p.running {
		return
	}
	if elapsed := now.Sub(p.startTime); elapsed > 0 {
		p.uptime += elapsed
	}
	p.startTime = now
	p.running = false
}

// current возвращает uptime с учетом идущего воспроизведения
func (p *position) current(now time.Time) time.Duration {
	if !p.running {
		return p.uptime
	}
	if elapsed := now.Sub(p.startTime); elapsed > 0 {
		return p.uptime + elapsed
	}
	return p.uptime
}

// resumeOffset смещение, которое нужно сохранить в start_point
func (p *position) resumeOffset(total time.Duration, enabled bool) time.Duration {
	if !enabled {
		return 0
	}
	return catalog.Wrap(p.uptime, total)
}
