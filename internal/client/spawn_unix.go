//go:build !windows

package client

import "syscall"

// detachedAttr отвязывает сервер от терминала клиента
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
