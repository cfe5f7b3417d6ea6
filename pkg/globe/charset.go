package globe

import (
	"fmt"
	"strings"
)

// Charset selects the glyphs used to shade the globe.
type Charset int

const (
	CharsetASCII Charset = iota
	CharsetBlocks
	CharsetBraille
)

func ParseCharset(name string) (Charset, error) {
	switch strings.ToLower(name) {
	case "", "ascii":
		return CharsetASCII, nil
	case "blocks", "block":
		return CharsetBlocks, nil
	case "braille":
		return CharsetBraille, nil
	}
	return CharsetASCII, fmt.Errorf("unknown charset %q (want ascii, blocks or braille)", name)
}

func (c Charset) String() string {
	switch c {
	case CharsetBlocks:
		return "blocks"
	case CharsetBraille:
		return "braille"
	default:
		return "ascii"
	}
}

// MarkerRune is the glyph drawn for an event marker.
func (c Charset) MarkerRune() rune {
	if c == CharsetASCII {
		return '*'
	}
	return '●'
}

func (c Charset) shade(density float64) rune {
	switch c {
	case CharsetBraille:
		return shadeBraille(density)
	case CharsetBlocks:
		return shadeBlock(density)
	default:
		return shadeASCII(density)
	}
}

type step struct {
	min float64
	r   rune
}

var (
	asciiSteps = []step{
		{1.0, '@'}, {0.8, '#'}, {0.6, '%'}, {0.4, 'o'}, {0.3, '='},
		{0.2, '+'}, {0.15, '-'}, {0.1, '.'}, {0.05, '`'},
	}
	blockSteps = []step{
		{1.0, '█'}, {0.875, '▓'}, {0.75, '▒'}, {0.625, '░'}, {0.5, '▄'},
		{0.375, '▃'}, {0.25, '▂'}, {0.125, '▁'},
	}
	brailleSteps = []step{
		{1.0, '⣿'}, {0.9, '⣾'}, {0.8, '⣶'}, {0.7, '⣦'}, {0.6, '⣤'},
		{0.5, '⣀'}, {0.4, '⡀'}, {0.3, '⠄'}, {0.2, '⠂'}, {0.15, '⠁'},
	}
)

func pick(steps []step, density float64) rune {
	for _, s := range steps {
		if density > s.min {
			return s.r
		}
	}
	return ' '
}

func shadeASCII(density float64) rune   { return pick(asciiSteps, density) }
func shadeBlock(density float64) rune   { return pick(blockSteps, density) }
func shadeBraille(density float64) rune { return pick(brailleSteps, density) }
