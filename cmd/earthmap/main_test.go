package main

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestBitmap(t *testing.T) {
	// Left half dark (land), right half white (water).
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			c := color.Gray{Y: 255}
			if x < 20 {
				c.Y = 0
			}
			img.SetGray(x, y, c)
		}
	}

	rows := Bitmap(img, 8, 4, 128)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	for _, row := range rows {
		if row != "####    " {
			t.Errorf("row = %q, want %q", row, "####    ")
		}
	}
}

func TestSource(t *testing.T) {
	src, err := Source("globe", []string{"# ", " #"})
	if err != nil {
		t.Fatal(err)
	}
	text := string(src)
	for _, want := range []string{
		"DO NOT EDIT.",
		"package globe",
		"// earthBitmap is 2x2",
		"\t\"# \",\n",
		"\t\" #\",\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("generated source missing %q:\n%s", want, text)
		}
	}
}
