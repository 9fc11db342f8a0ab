package player

import (
	"errors"
	"sync"
	"time"
)

// Opened запись о вызове Mock.Open
type Opened struct {
	Path   string
	Offset time.Duration
}

// Mock реализация Sink для тестов: ничего не воспроизводит, запоминает вызовы.
// Трек считается доигранным только после вызова Finish.
type Mock struct {
	mu        sync.Mutex
	opened    []Opened
	submitted []string
	failing   map[string]error
	paused    bool
	drained   bool
	closed    int

	// OnOpen вызывается внутри Open, позволяет имитировать медленное декодирование
	OnOpen func(path string)
	// OnSubmit вызывается в начале Submit
	OnSubmit func(path string)

	finished chan struct{}
}

var _ Sink = (*Mock)(nil)

// NewMock создает пустой мок аудиовыхода
func NewMock() *Mock {
	return &Mock{
		drained:  true,
		failing:  make(map[string]error),
		finished: make(chan struct{}, 1),
	}
}

type mockStream struct {
	path string
	mock *Mock
}

func (m *mockStream) Path() string            { return m.path }
func (m *mockStream) Duration() time.Duration { return 0 }

func (m *mockStream) Close() error {
	m.mock.mu.Lock()
	m.mock.closed++
	m.mock.mu.Unlock()
	return nil
}

// Fail заставляет Open возвращать ошибку для пути
func (m *Mock) Fail(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = errors.New("ошибка декодирования")
	}
	m.failing[path] = err
}

func (m *Mock) Open(path string, offset time.Duration) (Stream, error) {
	if m.OnOpen != nil {
		m.OnOpen(path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, Opened{Path: path, Offset: offset})
	if err := m.failing[path]; err != nil {
		return nil, err
	}
	return &mockStream{path: path, mock: m}, nil
}

func (m *Mock) Submit(s Stream) error {
	if m.OnSubmit != nil {
		m.OnSubmit(s.Path())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, s.Path())
	m.drained = false
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *Mock) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

func (m *Mock) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drained = true
	m.paused = false
}

func (m *Mock) Drained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drained
}

func (m *Mock) Finished() <-chan struct{} {
	return m.finished
}

// Finish имитирует окончание текущего трека
func (m *Mock) Finish() {
	m.mu.Lock()
	m.drained = true
	m.mu.Unlock()

	select {
	case m.finished <- struct{}{}:
	default:
	}
}

// Opens возвращает копию списка вызовов Open
func (m *Mock) Opens() []Opened {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Opened(nil), m.opened...)
}

// Submitted возвращает пути отправленных треков по порядку
func (m *Mock) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}

// Paused сообщает, стоит ли вывод на паузе
func (m *Mock) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Closed возвращает число закрытых потоков
func (m *Mock) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
