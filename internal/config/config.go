// Package config содержит функции для загрузки конфигурации приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// ErrConfig оборачивает все ошибки чтения и проверки конфигурации
var ErrConfig = errors.New("ошибка конфигурации")

const startPointKey = "start_point"

// Config структура для хранения конфигурации приложения
type Config struct {
	AudioDirectories []string `yaml:"audio_directories"`
	RandomizeTracks  bool     `yaml:"randomize_tracks"`
	ResumePlayback   bool     `yaml:"resume_playback"`
	StartPoint       int      `yaml:"start_point"` // Позиция в секундах от начала каталога
	DownloadDir      string   `yaml:"download_dir,omitempty"`
}

// DefaultPath возвращает путь к файлу конфигурации по умолчанию
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "muse", "config.yaml")
}

// Default возвращает конфигурацию для первого запуска
func Default() *Config {
	return &Config{
		AudioDirectories: []string{xdg.UserDirs.Music},
		ResumePlayback:   true,
	}
}

// LoadConfig загружает конфигурацию приложения из указанного файла
func LoadConfig(filePath string) (*Config, error) {
	path := expandPath(filePath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
	}

	// Раскрываем тильду в путях аудиодиректорий
	for i, dir := range config.AudioDirectories {
		config.AudioDirectories[i] = expandPath(dir)
	}

	// Устанавливаем значения по умолчанию, если они не заданы
	if config.DownloadDir == "" {
		if len(config.AudioDirectories) > 0 {
			config.DownloadDir = config.AudioDirectories[0]
		} else {
			config.DownloadDir = xdg.UserDirs.Music
		}
	}
	config.DownloadDir = expandPath(config.DownloadDir)

	return config, nil
}

// Validate проверяет, что все аудиодиректории существуют
func (c *Config) Validate() error {
	if c.StartPoint < 0 {
		return fmt.Errorf("%w: start_point не может быть отрицательным (%d)", ErrConfig, c.StartPoint)
	}
	for _, dir := range c.AudioDirectories {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: аудиодиректория недоступна: %w", ErrConfig, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s не является директорией", ErrConfig, dir)
		}
	}
	return nil
}

// EnsureFile создает файл конфигурации по умолчанию, если его еще нет.
// Возвращает true, если файл был создан.
func EnsureFile(filePath string) (bool, error) {
	path := expandPath(filePath)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, fmt.Errorf("ошибка сериализации конфигурации: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("ошибка создания директории конфигурации: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("ошибка записи файла конфигурации: %w", err)
	}
	return true, nil
}

// SaveStartPoint записывает start_point в файл конфигурации.
// Остальные ключи, комментарии и порядок полей файла сохраняются.
func SaveStartPoint(filePath string, seconds int) error {
	path := expandPath(filePath)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}
	if doc.Kind == 0 {
		// Пустой файл
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("ошибка разбора конфигурации: ожидался словарь верхнего уровня")
	}
	setInt(doc.Content[0], startPointKey, seconds)

	var out strings.Builder
	encoder := yaml.NewEncoder(&out)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("ошибка сериализации конфигурации: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("ошибка сериализации конфигурации: %w", err)
	}

	// Пишем во временный файл и переименовываем, чтобы не оставить полузаписанный конфиг
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(out.String()), 0644); err != nil {
		return fmt.Errorf("ошибка записи файла конфигурации: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ошибка записи файла конфигурации: %w", err)
	}
	return nil
}

// setInt заменяет значение ключа в словаре либо добавляет ключ в конец
func setInt(mapping *yaml.Node, key string, value int) {
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(value)}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			valueNode.LineComment = mapping.Content[i+1].LineComment
			mapping.Content[i+1] = valueNode
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		valueNode,
	)
}

// Store читает и обновляет конфигурацию в одном файле
type Store struct {
	Path string
}

// NewStore создает хранилище конфигурации для файла
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load загружает конфигурацию из файла
func (s *Store) Load() (*Config, error) {
	return LoadConfig(s.Path)
}

// SaveStartPoint сохраняет позицию возобновления
func (s *Store) SaveStartPoint(seconds int) error {
	return SaveStartPoint(s.Path, seconds)
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
