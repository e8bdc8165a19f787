// Package render draws spectator images of the arena from world snapshots.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	"bomb-arena/internal/game"

	"github.com/fogleman/gg"
)

const (
	DefaultSize = 500
	MinSize     = 100
	MaxSize     = 2000
	gridSpacing = 250.0 // world units
)

// ArenaRenderer renders the whole arena scaled into a square PNG.
// The last encoded frame is reused while the tick and size are unchanged.
type ArenaRenderer struct {
	mu       sync.Mutex
	lastTick uint64
	lastSize int
	lastPNG  []byte
	fontPath string
}

// NewArenaRenderer creates a renderer, picking up a system font if one exists
func NewArenaRenderer() *ArenaRenderer {
	return &ArenaRenderer{fontPath: getFontPath()}
}

// PNG returns the encoded image of ws at size×size pixels
func (r *ArenaRenderer) PNG(ws *game.WorldSnapshot, size int) ([]byte, error) {
	if ws == nil {
		return nil, fmt.Errorf("no world snapshot")
	}
	size = ClampSize(size)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastPNG != nil && r.lastTick == ws.Tick && r.lastSize == size {
		return r.lastPNG, nil
	}

	dc := r.draw(ws, size)
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}

	r.lastTick, r.lastSize, r.lastPNG = ws.Tick, size, buf.Bytes()
	return r.lastPNG, nil
}

// ClampSize bounds a requested image size
func ClampSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	return max(MinSize, min(MaxSize, size))
}

func (r *ArenaRenderer) draw(ws *game.WorldSnapshot, size int) *gg.Context {
	dc := gg.NewContext(size, size)

	width := ws.WorldMax.X - ws.WorldMin.X
	height := ws.WorldMax.Y - ws.WorldMin.Y
	scale := float64(size) / math.Max(width, height)
	if width <= 0 || height <= 0 {
		scale = 1
	}

	drawBackground(dc, size)

	dc.Push()
	dc.Scale(scale, scale)
	dc.Translate(-ws.WorldMin.X, -ws.WorldMin.Y)

	drawGrid(dc, ws, scale)
	for _, ex := range ws.Explosions {
		drawExplosion(dc, ex)
	}
	for _, b := range ws.Bombs {
		drawBomb(dc, b)
	}
	for _, p := range ws.Players {
		drawPlayer(dc, p)
	}
	dc.Pop()

	// Labels are drawn unscaled so text stays legible
	if r.fontPath != "" {
		if err := dc.LoadFontFace(r.fontPath, 12); err == nil {
			dc.SetColor(color.White)
			for _, p := range ws.Players {
				if p.Dead {
					continue
				}
				x := (p.X - ws.WorldMin.X) * scale
				y := (p.Y-ws.WorldMin.Y)*scale + p.Size*scale/2 + 10
				dc.DrawStringAnchored(p.Name, x, y, 0.5, 0.5)
			}
			dc.DrawStringAnchored(fmt.Sprintf("tick %d  players %d", ws.Tick, ws.PlayerCount), 8, 12, 0, 0.5)
		}
	}
	return dc
}

func drawBackground(dc *gg.Context, size int) {
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()
}

func drawGrid(dc *gg.Context, ws *game.WorldSnapshot, scale float64) {
	dc.SetColor(color.RGBA{30, 30, 45, 255})
	dc.SetLineWidth(1 / scale)

	for x := ws.WorldMin.X; x <= ws.WorldMax.X; x += gridSpacing {
		dc.DrawLine(x, ws.WorldMin.Y, x, ws.WorldMax.Y)
		dc.Stroke()
	}
	for y := ws.WorldMin.Y; y <= ws.WorldMax.Y; y += gridSpacing {
		dc.DrawLine(ws.WorldMin.X, y, ws.WorldMax.X, y)
		dc.Stroke()
	}
}

func drawPlayer(dc *gg.Context, p game.PlayerState) {
	radius := p.Size / 2

	if p.Dead {
		dc.SetColor(color.RGBA{80, 80, 80, 120})
		dc.DrawCircle(p.X, p.Y, radius)
		dc.Fill()
		return
	}

	// Body
	dc.SetColor(parseHexColor(p.Color))
	dc.DrawCircle(p.X, p.Y, radius)
	dc.Fill()

	// Facing
	dc.SetColor(color.White)
	dc.SetLineWidth(4)
	dc.DrawLine(p.X, p.Y, p.X+math.Cos(p.Orientation)*radius*1.4, p.Y+math.Sin(p.Orientation)*radius*1.4)
	dc.Stroke()

	// Health bar
	barWidth := p.Size * 1.6
	barHeight := 8.0
	hpPercent := float64(p.Health) / float64(p.MaxHealth)
	top := p.Y - radius - 18

	dc.SetColor(color.RGBA{51, 51, 51, 255})
	dc.DrawRectangle(p.X-barWidth/2, top, barWidth, barHeight)
	dc.Fill()

	if hpPercent > 0.5 {
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	} else if hpPercent > 0.25 {
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	} else {
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(p.X-barWidth/2, top, barWidth*hpPercent, barHeight)
	dc.Fill()
}

func drawBomb(dc *gg.Context, b game.BombState) {
	dc.SetColor(color.RGBA{20, 20, 20, 255})
	dc.DrawCircle(b.X, b.Y, b.Size)
	dc.Fill()

	// Fuse glow brightens as it burns down
	glow := uint8(255 * (1 - math.Min(1, b.Fuse/game.BombFuse.Seconds())))
	dc.SetColor(color.RGBA{255, glow / 2, 0, 200})
	dc.SetLineWidth(3)
	dc.DrawCircle(b.X, b.Y, b.Size)
	dc.Stroke()
}

func drawExplosion(dc *gg.Context, ex game.ExplosionState) {
	progress := 0.0
	if ex.TotalFrames > 0 {
		progress = float64(ex.Frame+1) / float64(ex.TotalFrames)
	}
	alpha := uint8(200 * (1 - progress))

	dc.SetColor(color.RGBA{255, 140, 0, alpha})
	dc.DrawCircle(ex.X, ex.Y, ex.Size*(0.4+0.6*progress))
	dc.Fill()
}

func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}

	var r, g, b uint8
	fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	return color.RGBA{r, g, b, 255}
}

func getFontPath() string {
	// Try common font locations
	paths := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
		"C:\\Windows\\Fonts\\arial.ttf",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	matches, _ := filepath.Glob("*.ttf")
	if len(matches) > 0 {
		return matches[0]
	}

	return ""
}
