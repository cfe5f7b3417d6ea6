// Command earthmap turns an equirectangular projection image of the Earth
// into the land bitmap the globe renderer samples.
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Input     string `arg:"" type:"existingfile" help:"Equirectangular image, dark land on light water (PNG or JPEG)."`
	Output    string `short:"o" placeholder:"FILE" help:"Write the Go source here instead of stdout."`
	Package   string `default:"globe" help:"Package name of the generated file."`
	Width     int    `default:"120" help:"Bitmap columns."`
	Height    int    `default:"60" help:"Bitmap rows."`
	Threshold uint32 `default:"128" help:"Brightness (0-255) above which a pixel is water."`
}

func (c *CLI) Validate() error {
	if c.Width < 8 || c.Height < 4 {
		return fmt.Errorf("bitmap must be at least 8x4")
	}
	if c.Threshold > 255 {
		return fmt.Errorf("threshold must be between 0 and 255")
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("earthmap"),
		kong.Description("Generates the globe's land bitmap from an equirectangular Earth image."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run(cli))
}

func run(cli CLI) error {
	file, err := os.Open(cli.Input)
	if err != nil {
		return err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return fmt.Errorf("decode %s: %w", cli.Input, err)
	}

	rows := Bitmap(img, cli.Width, cli.Height, cli.Threshold)
	src, err := Source(cli.Package, rows)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cli.Output != "" {
		f, err := os.Create(cli.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = out.Write(src)
	return err
}

// Bitmap samples img on a width x height grid. Pixels darker than the
// threshold are land ('#'), the rest water (' ').
func Bitmap(img image.Image, width, height int, threshold uint32) []string {
	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / float64(width)
	scaleY := float64(bounds.Dy()) / float64(height)

	rows := make([]string, height)
	line := make([]byte, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			imgX := bounds.Min.X + int(float64(x)*scaleX)
			imgY := bounds.Min.Y + int(float64(y)*scaleY)

			// RGBA is 16-bit per channel
			r, g, b, _ := img.At(imgX, imgY).RGBA()
			if (r+g+b)/3>>8 > threshold {
				line[x] = ' '
			} else {
				line[x] = '#'
			}
		}
		rows[y] = string(line)
	}
	return rows
}

// Source renders the bitmap as a gofmt'ed Go file.
func Source(pkg string, rows []string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "// Code generated by cmd/earthmap from an equirectangular Earth image. DO NOT EDIT.")
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	if len(rows) > 0 {
		fmt.Fprintf(&buf, "// earthBitmap is %dx%d, longitude -180..180 left to right, latitude 90..-90\n", len(rows[0]), len(rows))
		fmt.Fprintln(&buf, "// top to bottom. '#' marks land.")
	}
	fmt.Fprintln(&buf, "var earthBitmap = []string{")
	for _, row := range rows {
		fmt.Fprintf(&buf, "\t%q,\n", row)
	}
	fmt.Fprintln(&buf, "}")

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return src, nil
}
