package client

import (
	"fmt"
	"os"
	"os/exec"
)

// ExecSpawner запускает исполняемый файл командой start как отдельный процесс
type ExecSpawner struct {
	// Executable путь к исполняемому файлу, по умолчанию текущий процесс
	Executable string
}

func (s ExecSpawner) Spawn(addr, configPath string) error {
	exe := s.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return fmt.Errorf("не удалось определить путь к исполняемому файлу: %w", err)
		}
	}

	args := []string{"start", "--addr", addr}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	cmd := exec.Command(exe, args...)
	// stdin, stdout и stderr остаются nil, то есть /dev/null
	cmd.SysProcAttr = detachedAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
