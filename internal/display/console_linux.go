//go:build linux

package display

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// KD console modes from linux/kd.h
const (
	kdText     = 0x00
	kdGraphics = 0x01
	kdSetMode  = 0x4B3A // KDSETMODE ioctl
)

var vtPaths = []string{"/dev/tty", "/dev/tty0"}

// setConsoleMode switches the active virtual terminal between text and
// graphics mode. In graphics mode the kernel stops drawing the console and its
// cursor over the framebuffer.
func setConsoleMode(mode int) error {
	var lastErr error
	for _, p := range vtPaths {
		fd, err := unix.Open(p, unix.O_RDONLY, 0)
		if err != nil {
			lastErr = fmt.Errorf("open %s: %w", p, err)
			continue
		}
		err = unix.IoctlSetInt(fd, kdSetMode, mode)
		_ = unix.Close(fd)
		if err != nil {
			lastErr = fmt.Errorf("KDSETMODE %d on %s: %w", mode, p, err)
			continue
		}
		return nil
	}
	return lastErr
}

func writeVT(s string) error {
	var lastErr error
	for _, p := range vtPaths {
		f, err := os.OpenFile(p, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = f.WriteString(s)
		_ = f.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("write VT: %w", lastErr)
}

func enterGraphics(l Logger) {
	if err := setConsoleMode(kdGraphics); err != nil {
		l.Errorf("tty", "KD_GRAPHICS failed: %v", err)
	}
	if err := writeVT("\x1b[?25l"); err != nil {
		l.Errorf("tty", "hide cursor failed: %v", err)
	}
}

func leaveGraphics(l Logger) {
	if err := writeVT("\x1b[?25h"); err != nil {
		l.Errorf("tty", "show cursor failed: %v", err)
	}
	if err := setConsoleMode(kdText); err != nil {
		l.Errorf("tty", "KD_TEXT failed: %v", err)
	}
}
