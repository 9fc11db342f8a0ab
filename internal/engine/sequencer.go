package engine

import (
	"context"
	"time"
)

// startSequencerLocked запускает новый секвенсор (под мьютексом).
// Предыдущий, если есть, отменяется.
func (e *Engine) startSequencerLocked() {
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runSequencer(ctx)
	}()
}

// runSequencer последовательно проигрывает треки каталога по кругу
func (e *Engine) runSequencer(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	first := true
	for {
		if !e.step(ctx, &first) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-e.sink.Finished():
		case <-ticker.C:
		}
	}
}

// step одна итерация секвенсора. Возвращает false, если секвенсор должен завершиться.
func (e *Engine) step(ctx context.Context, first *bool) bool {
	e.mu.Lock()
	if ctx.Err() != nil || e.status == Idle {
		e.mu.Unlock()
		return false
	}
	if e.status != Playing || !e.sink.Drained() {
		e.mu.Unlock()
		return true
	}

	index := e.currentTrack
	var offset time.Duration
	if *first {
		offset = e.pendingOffset
		e.pendingOffset = 0
		*first = false
	} else {
		index = (index + 1) % e.catalog.Len()
	}
	e.currentTrack = index
	path := e.catalog.Tracks[index].Path
	e.mu.Unlock()

	// Декодирование может занять время, блокировка не держится
	stream, err := e.sink.Open(path, offset)
	var label string
	if err == nil {
		label = e.describe(path)
	}

	if err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("не удалось открыть трек, пропускаем")
		return ctx.Err() == nil
	}

	// submitMu держится до конца Submit: Stop снимает трек с вывода только после него.
	// Состояние под mu проверяется здесь, а сам Submit идет без mu.
	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	e.mu.Lock()
	cancelled := ctx.Err() != nil || e.status == Idle
	e.mu.Unlock()
	if cancelled {
		stream.Close()
		return false
	}

	if err := e.sink.Submit(stream); err != nil {
		stream.Close()
		e.logger.Warn().Err(err).Str("path", path).Msg("не удалось воспроизвести трек, пропускаем")
		return true
	}

	e.logger.Info().
		Int("track", index).
		Str("path", path).
		Dur("offset", offset).
		Msg("сейчас играет: " + label)
	return true
}
