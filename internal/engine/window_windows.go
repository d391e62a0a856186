//go:build windows

package engine

import (
	"syscall"
	"unsafe"

	"Meadow3D/internal/params"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

const (
	DWMWA_USE_IMMERSIVE_DARK_MODE = 20
	DWMWA_CAPTION_COLOR           = 35
	DWMWA_BORDER_COLOR            = 34
)

// styleTitleBar switches the title bar to dark mode and paints the caption
// and border in the scene's clear color.
func styleTitleBar(window *glfw.Window, caption params.Color) {
	hwnd := window.GetWin32Window()
	if hwnd == nil {
		return
	}

	var useDarkMode int32 = 1
	procDwmSetWindowAttribute.Call(
		uintptr(unsafe.Pointer(hwnd)),
		DWMWA_USE_IMMERSIVE_DARK_MODE,
		uintptr(unsafe.Pointer(&useDarkMode)),
		unsafe.Sizeof(useDarkMode),
	)

	colorBGR := uint32(uint8(caption[2]*255))<<16 | uint32(uint8(caption[1]*255))<<8 | uint32(uint8(caption[0]*255))
	procDwmSetWindowAttribute.Call(
		uintptr(unsafe.Pointer(hwnd)),
		DWMWA_BORDER_COLOR,
		uintptr(unsafe.Pointer(&colorBGR)),
		unsafe.Sizeof(colorBGR),
	)
	procDwmSetWindowAttribute.Call(
		uintptr(unsafe.Pointer(hwnd)),
		DWMWA_CAPTION_COLOR,
		uintptr(unsafe.Pointer(&colorBGR)),
		unsafe.Sizeof(colorBGR),
	)
}
