package asset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Mapping says how an environment map wraps around the scene.
type Mapping int

const (
	EquirectangularReflection Mapping = iota
)

// EnvMap is a decoded environment map: linear RGB floats, row-major,
// top row first.
type EnvMap struct {
	Name    string
	Width   int
	Height  int
	Pixels  []float32
	Mapping Mapping
}

var errBadRGBE = errors.New("malformed radiance rgbe data")

// maxEnvMapSide bounds the declared resolution before any allocation.
const maxEnvMapSide = 16384

// DecodeEnvMap decodes a Radiance .hdr file. Plain PNG/JPEG images are
// accepted as low dynamic range maps.
func DecodeEnvMap(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte("#?")) {
		return decodeRGBE(path, bytes.NewReader(data))
	}

	ldr, err := DecodeImage(path)
	if err != nil {
		return nil, err
	}
	img := ldr.(*Image)
	env := &EnvMap{Name: path, Width: img.Width, Height: img.Height, Pixels: make([]float32, img.Width*img.Height*3)}
	for i := 0; i < img.Width*img.Height; i++ {
		env.Pixels[i*3] = float32(img.Pixels[i*4]) / 255
		env.Pixels[i*3+1] = float32(img.Pixels[i*4+1]) / 255
		env.Pixels[i*3+2] = float32(img.Pixels[i*4+2]) / 255
	}
	return env, nil
}

func decodeRGBE(name string, r io.Reader) (*EnvMap, error) {
	br := bufio.NewReader(r)

	// Header lines run until the first blank line
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%s header: %w", name, errBadRGBE)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "FORMAT=") && line != "FORMAT=32-bit_rle_rgbe" {
			return nil, fmt.Errorf("%s %s: %w", name, line, ErrUnsupportedFormat)
		}
	}

	res, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%s resolution: %w", name, errBadRGBE)
	}
	fields := strings.Fields(res)
	if len(fields) != 4 || fields[0] != "-Y" || fields[2] != "+X" {
		return nil, fmt.Errorf("%s orientation %q: %w", name, strings.TrimSpace(res), ErrUnsupportedFormat)
	}
	height, errH := strconv.Atoi(fields[1])
	width, errW := strconv.Atoi(fields[3])
	if errH != nil || errW != nil || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%s size: %w", name, errBadRGBE)
	}
	if width > maxEnvMapSide || height > maxEnvMapSide {
		return nil, fmt.Errorf("%s size %dx%d: %w", name, width, height, errBadRGBE)
	}

	env := &EnvMap{Name: name, Width: width, Height: height, Pixels: make([]float32, width*height*3)}
	scan := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readScanline(br, scan, width); err != nil {
			return nil, fmt.Errorf("%s scanline %d: %w", name, y, err)
		}
		row := env.Pixels[y*width*3:]
		for x := 0; x < width; x++ {
			rgbeToFloat(scan[x*4:x*4+4], row[x*3:x*3+3])
		}
	}
	return env, nil
}

// readScanline reads one scanline into scan as interleaved RGBE quads,
// handling both flat and adaptive run-length encoded lines.
func readScanline(br *bufio.Reader, scan []byte, width int) error {
	head, err := br.Peek(4)
	if err != nil {
		return errBadRGBE
	}
	rle := width >= 8 && width < 0x8000 && head[0] == 2 && head[1] == 2 && head[2]&0x80 == 0
	if !rle {
		_, err := io.ReadFull(br, scan)
		if err != nil {
			return errBadRGBE
		}
		return nil
	}
	if int(head[2])<<8|int(head[3]) != width {
		return errBadRGBE
	}
	if _, err := br.Discard(4); err != nil {
		return errBadRGBE
	}

	// Each channel is stored as its own run-length encoded plane
	for ch := 0; ch < 4; ch++ {
		for x := 0; x < width; {
			count, err := br.ReadByte()
			if err != nil {
				return errBadRGBE
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > width {
					return errBadRGBE
				}
				v, err := br.ReadByte()
				if err != nil {
					return errBadRGBE
				}
				for i := 0; i < n; i++ {
					scan[(x+i)*4+ch] = v
				}
				x += n
				continue
			}
			n := int(count)
			if n == 0 || x+n > width {
				return errBadRGBE
			}
			for i := 0; i < n; i++ {
				v, err := br.ReadByte()
				if err != nil {
					return errBadRGBE
				}
				scan[(x+i)*4+ch] = v
			}
			x += n
		}
	}
	return nil
}

func rgbeToFloat(rgbe []byte, out []float32) {
	if rgbe[3] == 0 {
		out[0], out[1], out[2] = 0, 0, 0
		return
	}
	f := float32(math.Ldexp(1, int(rgbe[3])-(128+8)))
	out[0] = float32(rgbe[0]) * f
	out[1] = float32(rgbe[1]) * f
	out[2] = float32(rgbe[2]) * f
}
