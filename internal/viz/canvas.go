package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a Braille dot grid of Width x Height cells, i.e. (2*Width) x
// (4*Height) dots.
type Canvas struct {
	Width, Height int
	grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, grid: make([][]rune, h)}
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = brailleBlank
		}
	}
}

// Line draws a segment with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) Circle(cx, cy, r int) {
	steps := 8 * r
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		c.Set(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))))
	}
}

// Dial draws the shaft as a needle at position degrees inside a circle, with
// a short tick on the rim at target degrees. Zero points up and angles grow
// clockwise.
func (c *Canvas) Dial(position, target float64) {
	w, h := c.Width*2, c.Height*4
	cx, cy := w/2, h/2
	r := cy - 1
	if cx-1 < r {
		r = cx - 1
	}

	c.Circle(cx, cy, r)
	nx, ny := polar(cx, cy, float64(r)*0.85, position)
	c.Line(cx, cy, nx, ny)

	tx0, ty0 := polar(cx, cy, float64(r)*0.8, target)
	tx1, ty1 := polar(cx, cy, float64(r), target)
	c.Line(tx0, ty0, tx1, ty1)
}

func polar(cx, cy int, r, deg float64) (int, int) {
	a := deg * math.Pi / 180
	return cx + int(math.Round(r*math.Sin(a))), cy - int(math.Round(r*math.Cos(a)))
}

func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Dot reports whether the dot at (x, y) is lit.
func (c *Canvas) Dot(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}
