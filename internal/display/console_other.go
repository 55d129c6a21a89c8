//go:build !linux

package display

func enterGraphics(Logger) {}
func leaveGraphics(Logger) {}
