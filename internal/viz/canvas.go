// Package viz renders particle clouds to the terminal using a braille
// pixel canvas, for both one-shot frames and the live viewer.
package viz

import "strings"

// Braille cells pack a 2x4 dot grid per character; dot bits per
// (row, column) below the 0x2800 base rune.
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a character grid addressed in sub-pixel (dot) coordinates:
// (Cols*2) x (Rows*4) dots.
type Canvas struct {
	Cols, Rows int
	cells      [][]rune
}

// NewCanvas returns an empty canvas of Cols x Rows characters.
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{Cols: cols, Rows: rows, cells: make([][]rune, rows)}
	for i := range c.cells {
		c.cells[i] = make([]rune, cols)
	}
	c.Clear()
	return c
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = 0x2800
		}
	}
}

// Set turns on the dot at (x, y); out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Cols || row >= c.Rows {
		return
	}
	c.cells[row][col] |= brailleDots[y%4][x%2]
}

// Fill turns on every dot in the rectangle [x0,x1] x [y0,y1].
func (c *Canvas) Fill(x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			c.Set(x, y)
		}
	}
}

// String renders the grid, one line per character row.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}
