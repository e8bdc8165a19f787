package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"bomb-arena/internal/game"
)

func testWorld(tick uint64) *game.WorldSnapshot {
	return &game.WorldSnapshot{
		Tick:     tick,
		WorldMin: game.Vec2{X: 0, Y: 0},
		WorldMax: game.Vec2{X: 2500, Y: 2500},
		Players: []game.PlayerState{
			{ID: "a", Name: "Alice", Color: "#ff6b6b", X: 500, Y: 500, Size: 50, Health: 10, MaxHealth: 10},
			{ID: "b", Name: "Bob", Color: "#4ecdc4", X: 2000, Y: 1200, Size: 50, Health: 0, MaxHealth: 10, Dead: true},
		},
		Bombs:       []game.BombState{{ID: 1, X: 700, Y: 500, Size: 15, Fuse: 0.7}},
		Explosions:  []game.ExplosionState{{X: 1500, Y: 1500, Size: 100, Frame: 3, TotalFrames: 16}},
		PlayerCount: 2,
	}
}

func TestArenaPNG(t *testing.T) {
	r := NewArenaRenderer()

	data, err := r.PNG(testWorld(1), 400)
	if err != nil {
		t.Fatalf("PNG failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Invalid PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Errorf("Expected 400x400, got %dx%d", b.Dx(), b.Dy())
	}

	// Alice's body is centred on world (500,500), which is (80,80) at this scale
	got := color.RGBAModel.Convert(img.At(80, 82)).(color.RGBA)
	if got.R != 0xff || got.G != 0x6b {
		t.Errorf("Expected player color at (80,82), got %v", got)
	}
}

func TestArenaPNGCachesPerTick(t *testing.T) {
	r := NewArenaRenderer()

	first, _ := r.PNG(testWorld(5), 200)
	second, _ := r.PNG(testWorld(5), 200)
	if &first[0] != &second[0] {
		t.Error("Same tick and size should reuse the encoded frame")
	}

	third, _ := r.PNG(testWorld(6), 200)
	if &first[0] == &third[0] {
		t.Error("A new tick should re-render")
	}
}

func TestArenaPNGNilSnapshot(t *testing.T) {
	if _, err := NewArenaRenderer().PNG(nil, 100); err == nil {
		t.Error("Expected an error for a nil snapshot")
	}
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultSize},
		{-5, DefaultSize},
		{10, MinSize},
		{800, 800},
		{10000, MaxSize},
	}
	for _, tt := range tests {
		if got := ClampSize(tt.in); got != tt.want {
			t.Errorf("ClampSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	if got := parseHexColor("#ff6b6b"); got != (color.RGBA{255, 107, 107, 255}) {
		t.Errorf("Unexpected color %v", got)
	}
	if got := parseHexColor("bogus"); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white fallback, got %v", got)
	}
}
