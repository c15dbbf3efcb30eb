//go:build windows

package main

import "golang.org/x/sys/windows"

// Console output carries rule IDs, hostnames, and severity icons that
// fall outside the legacy code pages, and lipgloss styling needs VT
// escape handling. Both are per-console settings on Windows, fixed up
// here before any output happens.
func init() {
	// UTF-8 code page. Only direct console writes are affected; when
	// PowerShell pipes the output it applies [Console]::OutputEncoding
	// from the user's profile instead.
	const cpUTF8 = 65001
	windows.SetConsoleOutputCP(cpUTF8)
	windows.SetConsoleCP(cpUTF8)

	enableVT(windows.STD_OUTPUT_HANDLE)
	enableVT(windows.STD_ERROR_HANDLE)
}

// enableVT turns on virtual terminal processing so ANSI sequences
// render instead of printing literally. Supported on Windows 10+;
// failures leave the console in its default mode.
func enableVT(stdHandle uint32) {
	h, err := windows.GetStdHandle(stdHandle)
	if err != nil {
		return
	}
	var mode uint32
	if windows.GetConsoleMode(h, &mode) != nil {
		return
	}
	_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
}
