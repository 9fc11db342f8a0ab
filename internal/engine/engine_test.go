package engine

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazadus/go-muse/internal/catalog"
	"github.com/hazadus/go-muse/internal/config"
	"github.com/hazadus/go-muse/internal/player"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeStore хранит конфигурацию в памяти и запоминает записанные позиции
type fakeStore struct {
	mu      sync.Mutex
	cfg     config.Config
	loadErr error
	saveErr error
	saved   []int
	loads   int
}

func (s *fakeStore) Load() (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	cfg := s.cfg
	cfg.AudioDirectories = append([]string(nil), s.cfg.AudioDirectories...)
	return &cfg, nil
}

func (s *fakeStore) SaveStartPoint(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, seconds)
	return nil
}

func (s *fakeStore) Saved() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.saved...)
}

// fakeProber отдает длительности по имени файла
type fakeProber map[string]time.Duration

func (p fakeProber) Supported(path string) bool {
	return strings.HasSuffix(path, ".mp3")
}

func (p fakeProber) Duration(path string) (time.Duration, error) {
	d, ok := p[filepath.Base(path)]
	if !ok {
		return 0, errors.New("нет длительности")
	}
	return d, nil
}

// fakeClock ручные часы
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *Engine
	sink   *player.Mock
	store  *fakeStore
	clock  *fakeClock
	dir    string
}

// newFixture создает движок над каталогом a.mp3 (180s) и b.mp3 (120s)
func newFixture(t *testing.T, startPoint int) *fixture {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	f := &fixture{
		sink:  player.NewMock(),
		clock: newFakeClock(),
		dir:   dir,
		store: &fakeStore{cfg: config.Config{
			AudioDirectories: []string{dir},
			ResumePlayback:   true,
			StartPoint:       startPoint,
		}},
	}
	prober := fakeProber{"a.mp3": 180 * time.Second, "b.mp3": 120 * time.Second}
	f.engine = New(f.sink, f.store, prober, Options{
		PollInterval: tick,
		Clock:        f.clock.Now,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(func() {
		f.engine.Stop(false)
		f.engine.Wait()
	})
	return f
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fixture) waitSubmitted(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.sink.Submitted()) >= n
	}, waitFor, tick)
}

func TestPlayStartsAtResumePoint(t *testing.T) {
	f := newFixture(t, 200)

	msg, err := f.engine.Play()
	require.NoError(t, err)
	assert.Contains(t, msg, "00:03:20")

	f.waitSubmitted(t, 1)
	opens := f.sink.Opens()
	require.NotEmpty(t, opens)
	assert.Equal(t, player.Opened{Path: f.path("b.mp3"), Offset: 20 * time.Second}, opens[0])

	st := f.engine.Snapshot()
	assert.Equal(t, Playing, st.Status)
	assert.Equal(t, 1, st.CurrentTrack)
	assert.Equal(t, 2, st.Tracks)
	assert.Equal(t, 300*time.Second, st.Total)
}

func TestPlayWrapsStartPoint(t *testing.T) {
	f := newFixture(t, 500)

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)

	// 500 mod 300 = 200
	assert.Equal(t, player.Opened{Path: f.path("b.mp3"), Offset: 20 * time.Second}, f.sink.Opens()[0])
	assert.Equal(t, 200*time.Second, f.engine.Snapshot().Uptime)
}

func TestPlayTwiceReturnsAlreadyPlaying(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.engine.Play()
	require.NoError(t, err)

	_, err = f.engine.Play()
	assert.ErrorIs(t, err, ErrAlreadyPlaying)
}

func TestSequencerAdvancesAndWraps(t *testing.T) {
	f := newFixture(t, 200)

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)

	f.sink.Finish()
	f.waitSubmitted(t, 2)

	f.sink.Finish()
	f.waitSubmitted(t, 3)

	assert.Equal(t, []string{f.path("b.mp3"), f.path("a.mp3"), f.path("b.mp3")}, f.sink.Submitted()[:3])

	opens := f.sink.Opens()
	// Смещение применяется только к первому треку
	assert.Equal(t, time.Duration(0), opens[1].Offset)
	assert.Equal(t, time.Duration(0), opens[2].Offset)
}

func TestSequencerSkipsBrokenTrack(t *testing.T) {
	f := newFixture(t, 0)
	f.sink.Fail(f.path("a.mp3"), nil)

	_, err := f.engine.Play()
	require.NoError(t, err)

	f.waitSubmitted(t, 1)
	assert.Equal(t, f.path("b.mp3"), f.sink.Submitted()[0])
	assert.Equal(t, 1, f.engine.Snapshot().CurrentTrack)
}

func TestPauseAndResume(t *testing.T) {
	f := newFixture(t, 200)

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)

	f.clock.Advance(30 * time.Second)
	msg, err := f.engine.Pause()
	require.NoError(t, err)
	assert.Contains(t, msg, "00:03:50")
	assert.True(t, f.sink.Paused())
	assert.Equal(t, Paused, f.engine.Snapshot().Status)

	// Пока на паузе, время не идет
	f.clock.Advance(time.Hour)
	assert.Equal(t, 230*time.Second, f.engine.Snapshot().Uptime)

	_, err = f.engine.Pause()
	assert.ErrorIs(t, err, ErrNotPlaying)

	msg, err = f.engine.Play()
	require.NoError(t, err)
	assert.Contains(t, msg, "00:03:50")
	assert.False(t, f.sink.Paused())

	// Возобновление не запускает новый трек
	assert.Len(t, f.sink.Opens(), 1)
	assert.Equal(t, 1, f.store.loads)
}

func TestPauseWhenIdle(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.engine.Pause()
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestStopPersistsWrappedPosition(t *testing.T) {
	f := newFixture(t, 200)

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)

	f.clock.Advance(30 * time.Second)
	_, err = f.engine.Pause()
	require.NoError(t, err)
	_, err = f.engine.Play()
	require.NoError(t, err)
	f.clock.Advance(100 * time.Second)

	msg := f.engine.Stop(true)
	f.engine.Wait()

	assert.Contains(t, msg, "00:05:30")
	// 200 + 30 + 100 = 330, 330 mod 300 = 30
	assert.Equal(t, []int{30}, f.store.Saved())
	assert.Equal(t, Idle, f.engine.Snapshot().Status)
}

func TestStopWithoutResumeSavesZero(t *testing.T) {
	f := newFixture(t, 100)
	f.store.cfg.ResumePlayback = false

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	f.engine.Stop(true)
	assert.Equal(t, []int{0}, f.store.Saved())
}

func TestStopWithoutPersist(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.clock.Advance(10 * time.Second)

	f.engine.Stop(false)
	assert.Empty(t, f.store.Saved())
}

func TestStopBeforePlayDoesNotPersist(t *testing.T) {
	f := newFixture(t, 0)

	msg := f.engine.Stop(true)
	assert.Contains(t, msg, "00:00:00")
	assert.Empty(t, f.store.Saved())
}

func TestStopSaveFailureStillReturnsMessage(t *testing.T) {
	f := newFixture(t, 0)
	f.store.saveErr = errors.New("диск только для чтения")

	_, err := f.engine.Play()
	require.NoError(t, err)

	msg := f.engine.Stop(true)
	assert.Contains(t, msg, "не сохранена")
}

func TestPlayAfterStopContinuesFromUptime(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)
	f.clock.Advance(190 * time.Second)
	f.engine.Stop(false)
	f.engine.Wait()

	_, err = f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 2)

	opens := f.sink.Opens()
	assert.Equal(t, player.Opened{Path: f.path("b.mp3"), Offset: 10 * time.Second}, opens[len(opens)-1])
	assert.Equal(t, 1, f.store.loads)
}

func TestStopDuringSlowOpenDiscardsStream(t *testing.T) {
	f := newFixture(t, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.sink.OnOpen = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	_, err := f.engine.Play()
	require.NoError(t, err)
	<-entered

	// Блокировка не держится во время Open, поэтому команды проходят
	assert.Equal(t, Playing, f.engine.Snapshot().Status)
	f.engine.Stop(false)

	close(release)
	f.engine.Wait()

	assert.Empty(t, f.sink.Submitted())
	assert.Equal(t, 1, f.sink.Closed())
}

func TestPlayLoadErrorKeepsIdle(t *testing.T) {
	f := newFixture(t, 0)
	f.store.loadErr = config.ErrConfig

	_, err := f.engine.Play()
	require.ErrorIs(t, err, config.ErrConfig)
	assert.Equal(t, Idle, f.engine.Snapshot().Status)

	// Следующий Play пробует снова
	f.store.mu.Lock()
	f.store.loadErr = nil
	f.store.mu.Unlock()

	_, err = f.engine.Play()
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.loads)
}

func TestPlayWithoutTracks(t *testing.T) {
	f := newFixture(t, 0)
	f.store.cfg.AudioDirectories = []string{t.TempDir()}

	_, err := f.engine.Play()
	require.ErrorIs(t, err, catalog.ErrNoPlayableTracks)
	assert.Equal(t, Idle, f.engine.Snapshot().Status)
}

func TestPlayMissingDirectory(t *testing.T) {
	f := newFixture(t, 0)
	f.store.cfg.AudioDirectories = []string{filepath.Join(f.dir, "нет такой")}

	_, err := f.engine.Play()
	require.ErrorIs(t, err, config.ErrConfig)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, 200)
	assert.Contains(t, f.engine.Status(), "не загружен")

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)
	f.clock.Advance(5 * time.Second)

	status := f.engine.Status()
	assert.Contains(t, status, "[2/2]")
	assert.Contains(t, status, "b.mp3")
	assert.Contains(t, status, "00:03:25")
	assert.Contains(t, status, "00:05:00")
}

func TestShuffleUsesPermute(t *testing.T) {
	f := newFixture(t, 0)
	f.store.cfg.RandomizeTracks = true
	f.engine.permute = func(n int, swap func(i, j int)) {
		// Разворот вместо случайной перестановки
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	_, err := f.engine.Play()
	require.NoError(t, err)
	f.waitSubmitted(t, 1)

	assert.Equal(t, f.path("b.mp3"), f.sink.Submitted()[0])
}

func TestPosition(t *testing.T) {
	clock := newFakeClock()
	var p position

	p.resume(clock.Now())
	clock.Advance(10 * time.Second)
	assert.Equal(t, 10*time.Second, p.current(clock.Now()))

	p.fold(clock.Now())
	clock.Advance(time.Minute)
	assert.Equal(t, 10*time.Second, p.current(clock.Now()))

	// Повторный fold ничего не добавляет
	p.fold(clock.Now())
	assert.Equal(t, 10*time.Second, p.uptime)

	p.uptime = 310 * time.Second
	assert.Equal(t, 10*time.Second, p.resumeOffset(300*time.Second, true))
	assert.Equal(t, time.Duration(0), p.resumeOffset(300*time.Second, false))
}

func TestSubmitRunsWithoutEngineLock(t *testing.T) {
	f := newFixture(t, 0)

	lockFree := make(chan bool, 1)
	f.sink.OnSubmit = func(string) {
		done := make(chan struct{})
		go func() {
			f.engine.Snapshot()
			close(done)
		}()
		select {
		case <-done:
			lockFree <- true
		case <-time.After(time.Second):
			lockFree <- false
		}
	}

	_, err := f.engine.Play()
	require.NoError(t, err)

	select {
	case free := <-lockFree:
		assert.True(t, free, "Snapshot заблокирован во время Submit")
	case <-time.After(waitFor):
		t.Fatal("Submit не вызван")
	}
}

func TestStopDuringSlowSubmitClearsOutput(t *testing.T) {
	f := newFixture(t, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.sink.OnSubmit = func(string) {
		once.Do(func() { close(entered) })
		<-release
	}

	_, err := f.engine.Play()
	require.NoError(t, err)
	<-entered

	stopped := make(chan struct{})
	go func() {
		f.engine.Stop(false)
		close(stopped)
	}()

	// Stop ждет окончания Submit, а состояние уже Idle
	require.Eventually(t, func() bool {
		return f.engine.Snapshot().Status == Idle
	}, waitFor, tick)
	select {
	case <-stopped:
		t.Fatal("Stop завершился раньше Submit")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped
	f.engine.Wait()

	assert.Equal(t, []string{f.path("a.mp3")}, f.sink.Submitted())
	assert.True(t, f.sink.Drained(), "трек должен быть снят с вывода после Stop")
}

func TestStopPersistsThroughConfigFile(t *testing.T) {
	dir := t.TempDir()
	musicDir := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(musicDir, 0755))
	for _, name := range []string{"a.mp3", "b.mp3"} {
		require.NoError(t, os.WriteFile(filepath.Join(musicDir, name), []byte("x"), 0644))
	}

	configPath := filepath.Join(dir, "config.yaml")
	content := "# музыка\naudio_directories:\n  - " + musicDir + "\nrandomize_tracks: false\nresume_playback: true\nstart_point: 200 # секунды\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	var logs bytes.Buffer
	clock := newFakeClock()
	eng := New(player.NewMock(), config.NewStore(configPath),
		fakeProber{"a.mp3": 180 * time.Second, "b.mp3": 120 * time.Second},
		Options{PollInterval: tick, Clock: clock.Now, Logger: zerolog.New(&logs)})

	_, err := eng.Play()
	require.NoError(t, err)
	// 200 + 350 = 550, 550 mod 300 = 250
	clock.Advance(350 * time.Second)
	eng.Stop(true)
	eng.Wait()

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.StartPoint)
	assert.Equal(t, []string{musicDir}, cfg.AudioDirectories)
	assert.True(t, cfg.ResumePlayback)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# музыка")
	assert.Contains(t, string(data), "start_point: 250 # секунды")

	assert.Contains(t, logs.String(), "позиция сохранена: 00:04:10")

	// Новый движок продолжает с сохраненной позиции: 250 = a(180) + 70 в b
	sink := player.NewMock()
	next := New(sink, config.NewStore(configPath),
		fakeProber{"a.mp3": 180 * time.Second, "b.mp3": 120 * time.Second},
		Options{PollInterval: tick, Clock: clock.Now, Logger: zerolog.Nop()})
	t.Cleanup(func() {
		next.Stop(false)
		next.Wait()
	})

	_, err = next.Play()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sink.Opens()) > 0 }, waitFor, tick)
	assert.Equal(t, player.Opened{Path: filepath.Join(musicDir, "b.mp3"), Offset: 70 * time.Second}, sink.Opens()[0])
}
