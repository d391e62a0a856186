//go:build !windows

package engine

import (
	"Meadow3D/internal/params"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func styleTitleBar(*glfw.Window, params.Color) {}
