// Package geometry provides the basic positional types used by the scan
// engine: window-relative positions, sizes and capture regions.
package geometry

import "math"

// Pos is a 2D position with floating-point coordinates, relative to a
// window origin unless stated otherwise.
type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the sum of two positions.
func (p Pos) Add(other Pos) Pos {
	return Pos{X: p.X + other.X, Y: p.Y + other.Y}
}

// ToInt truncates the position to integer coordinates.
func (p Pos) ToInt() PosInt {
	return PosInt{X: int(p.X), Y: int(p.Y)}
}

// PosInt is a 2D position with integer (pixel) coordinates.
type PosInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the sum of two pixel positions.
func (p PosInt) Add(other PosInt) PosInt {
	return PosInt{X: p.X + other.X, Y: p.Y + other.Y}
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a rectangle with floating-point coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Origin returns the top-left corner.
func (r Rect) Origin() Pos {
	return Pos{X: r.Left, Y: r.Top}
}

// Size returns the rectangle dimensions.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Translate returns the rectangle shifted by the given offset.
func (r Rect) Translate(offset Pos) Rect {
	return Rect{
		Left:   r.Left + offset.X,
		Top:    r.Top + offset.Y,
		Width:  r.Width,
		Height: r.Height,
	}
}

// ToInt rounds the rectangle to integer pixel coordinates.
func (r Rect) ToInt() RectInt {
	return RectInt{
		Left:   int(math.Round(r.Left)),
		Top:    int(math.Round(r.Top)),
		Width:  int(math.Round(r.Width)),
		Height: int(math.Round(r.Height)),
	}
}

// RectInt is a rectangle with integer (pixel) coordinates.
type RectInt struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Origin returns the top-left corner.
func (r RectInt) Origin() PosInt {
	return PosInt{X: r.Left, Y: r.Top}
}

// Translate returns the rectangle shifted by the given offset.
func (r RectInt) Translate(offset PosInt) RectInt {
	return RectInt{
		Left:   r.Left + offset.X,
		Top:    r.Top + offset.Y,
		Width:  r.Width,
		Height: r.Height,
	}
}
