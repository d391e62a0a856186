package renderer

import (
	"fmt"
	"sync"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
	FailedUploads  int
}

// TextureManager uploads decoded textures on first use and keeps the GL
// name for as long as the renderer lives. Textures are keyed by the decoded
// asset, so two samplers reading the same handle share one upload.
type TextureManager struct {
	textureCache map[any]uint32
	failed       map[any]error
	mu           sync.RWMutex
	stats        TextureStats

	upload func(src any) (uint32, error)
	free   func(id uint32)
}

func NewTextureManager() *TextureManager {
	return &TextureManager{
		textureCache: make(map[any]uint32),
		failed:       make(map[any]error),
		upload:       uploadTexture,
		free: func(id uint32) {
			gl.DeleteTextures(1, &id)
		},
	}
}

// Acquire returns the texture name for src, uploading it if needed. src is
// an *asset.Image or *asset.EnvMap. A failed upload is remembered and
// returned again without another attempt.
func (tm *TextureManager) Acquire(src any) (uint32, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if textureID, exists := tm.textureCache[src]; exists {
		tm.stats.CacheHits++
		return textureID, nil
	}
	if err, failed := tm.failed[src]; failed {
		return 0, err
	}

	tm.stats.CacheMisses++
	textureID, err := tm.upload(src)
	if err != nil {
		err = fmt.Errorf("upload %s: %w", textureName(src), err)
		tm.failed[src] = err
		tm.stats.FailedUploads++
		return 0, err
	}
	tm.textureCache[src] = textureID
	tm.stats.TotalTextures++

	logger.Log.Debug("Texture uploaded",
		zap.String("name", textureName(src)),
		zap.Uint32("textureID", textureID))
	return textureID, nil
}

// GetStats returns current texture manager statistics
func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.textureCache)
	return stats
}

// LogStats logs current texture statistics
func (tm *TextureManager) LogStats() {
	stats := tm.GetStats()
	hitRate := 0.0
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		hitRate = float64(stats.CacheHits) / float64(lookups)
	}
	logger.Log.Info("Texture Manager Stats",
		zap.Int("totalTextures", stats.TotalTextures),
		zap.Int("activeTextures", stats.ActiveTextures),
		zap.Int("cacheHits", stats.CacheHits),
		zap.Int("cacheMisses", stats.CacheMisses),
		zap.Int("failedUploads", stats.FailedUploads),
		zap.Float64("hitRate", hitRate))
}

// Clear releases all textures
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, textureID := range tm.textureCache {
		tm.free(textureID)
	}
	tm.textureCache = make(map[any]uint32)
	tm.failed = make(map[any]error)
	logger.Log.Debug("Texture manager cleared")
}

func textureName(src any) string {
	switch t := src.(type) {
	case *asset.Image:
		return t.Name
	case *asset.EnvMap:
		return t.Name
	}
	return fmt.Sprintf("%T", src)
}

func minFilter(img *asset.Image) int32 {
	switch {
	case img.MinFilter == asset.FilterNearest && img.Mipmaps:
		return gl.NEAREST_MIPMAP_NEAREST
	case img.MinFilter == asset.FilterNearest:
		return gl.NEAREST
	case img.Mipmaps:
		return gl.LINEAR_MIPMAP_LINEAR
	}
	return gl.LINEAR
}

func magFilter(img *asset.Image) int32 {
	if img.MagFilter == asset.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func uploadTexture(src any) (uint32, error) {
	var textureID uint32
	switch t := src.(type) {
	case *asset.Image:
		if len(t.Pixels) != t.Width*t.Height*4 {
			return 0, fmt.Errorf("texture %s: %d bytes for %dx%d", t.Name, len(t.Pixels), t.Width, t.Height)
		}
		gl.GenTextures(1, &textureID)
		gl.BindTexture(gl.TEXTURE_2D, textureID)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(t.Width), int32(t.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(t.Pixels))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter(t))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter(t))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
		if t.Mipmaps {
			gl.GenerateMipmap(gl.TEXTURE_2D)
		}
	case *asset.EnvMap:
		if len(t.Pixels) != t.Width*t.Height*3 {
			return 0, fmt.Errorf("environment %s: %d floats for %dx%d", t.Name, len(t.Pixels), t.Width, t.Height)
		}
		gl.GenTextures(1, &textureID)
		gl.BindTexture(gl.TEXTURE_2D, textureID)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB16F, int32(t.Width), int32(t.Height), 0, gl.RGB, gl.FLOAT, gl.Ptr(t.Pixels))
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.GenerateMipmap(gl.TEXTURE_2D)
	default:
		return 0, fmt.Errorf("cannot upload %T as a texture", src)
	}
	return textureID, nil
}
