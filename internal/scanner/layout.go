package scanner

import "github.com/anime-shed/grid-scanner-go/pkg/geometry"

// Layout fixes every screen coordinate the engine touches, relative to
// the window origin. The grid rects describe the paginated item list on
// the left of the window; the field rects are relative to the captured
// detail panel on the right.
type Layout struct {
	// Panel is the item detail panel, window-relative.
	Panel geometry.RectInt

	// Field regions, relative to the captured panel image.
	Title         geometry.RectInt
	MainStatName  geometry.RectInt
	MainStatValue geometry.RectInt
	Level         geometry.RectInt
	Equip         geometry.RectInt
	SubStats      [4]geometry.RectInt

	// StarSample is the pixel whose color encodes the item rarity,
	// window-relative.
	StarSample geometry.PosInt

	// FlagPool is the small region whose summed red channel changes
	// whenever the selected cell changes. Used as the render-complete
	// signal.
	FlagPool geometry.RectInt

	// ItemCount is the "n/cap" text above the grid.
	ItemCount geometry.RectInt

	// ListStrip covers the whole visible grid, captured once per page
	// for batched lock-marker sampling.
	ListStrip geometry.RectInt

	// Grid geometry. A cell's top-left corner is
	// GridOrigin + GridMargin + (ItemGap+ItemSize) * (col, row).
	GridOrigin geometry.Pos
	GridMargin geometry.Pos
	ItemSize   geometry.Size
	ItemGap    geometry.Size

	// LockOffset is where the lock marker sits inside each cell,
	// relative to the cell's top-left corner in the list strip.
	LockOffset geometry.PosInt
}

// cellRect returns one grid cell's rectangle, window-relative.
func (l Layout) cellRect(row, col int) geometry.Rect {
	cell := geometry.Rect{
		Left:   l.GridMargin.X,
		Top:    l.GridMargin.Y,
		Width:  l.ItemSize.Width,
		Height: l.ItemSize.Height,
	}
	return cell.Translate(l.GridOrigin).Translate(geometry.Pos{
		X: (l.ItemGap.Width + l.ItemSize.Width) * float64(col),
		Y: (l.ItemGap.Height + l.ItemSize.Height) * float64(row),
	})
}

// CellCenter returns the pointer target for a grid cell: horizontally
// centered, vertically a quarter into the cell so the click lands above
// any badge overlays.
func (l Layout) CellCenter(row, col int) geometry.Pos {
	cell := l.cellRect(row, col)
	size := cell.Size()
	return geometry.Pos{X: cell.Left + size.Width/2, Y: cell.Top + size.Height/4}
}

// LockProbe returns the lock-marker sample point for a cell, relative
// to the list strip origin.
func (l Layout) LockProbe(row, col int) geometry.PosInt {
	cell := l.cellRect(row, col).Translate(geometry.Pos{X: -l.GridOrigin.X, Y: -l.GridOrigin.Y})
	return cell.Origin().ToInt().Add(l.LockOffset)
}

// Scale resizes every coordinate uniformly for a window height other
// than the 1080 reference.
func (l Layout) Scale(factor float64) Layout {
	out := l
	out.Panel = scaleRect(l.Panel, factor)
	out.Title = scaleRect(l.Title, factor)
	out.MainStatName = scaleRect(l.MainStatName, factor)
	out.MainStatValue = scaleRect(l.MainStatValue, factor)
	out.Level = scaleRect(l.Level, factor)
	out.Equip = scaleRect(l.Equip, factor)
	for i, r := range l.SubStats {
		out.SubStats[i] = scaleRect(r, factor)
	}
	out.StarSample = scalePos(l.StarSample, factor)
	out.FlagPool = scaleRect(l.FlagPool, factor)
	out.ItemCount = scaleRect(l.ItemCount, factor)
	out.ListStrip = scaleRect(l.ListStrip, factor)
	out.GridOrigin = geometry.Pos{X: l.GridOrigin.X * factor, Y: l.GridOrigin.Y * factor}
	out.GridMargin = geometry.Pos{X: l.GridMargin.X * factor, Y: l.GridMargin.Y * factor}
	out.ItemSize = geometry.Size{Width: l.ItemSize.Width * factor, Height: l.ItemSize.Height * factor}
	out.ItemGap = geometry.Size{Width: l.ItemGap.Width * factor, Height: l.ItemGap.Height * factor}
	out.LockOffset = scalePos(l.LockOffset, factor)
	return out
}

func scaleRect(r geometry.RectInt, f float64) geometry.RectInt {
	return geometry.Rect{
		Left:   float64(r.Left) * f,
		Top:    float64(r.Top) * f,
		Width:  float64(r.Width) * f,
		Height: float64(r.Height) * f,
	}.ToInt()
}

func scalePos(p geometry.PosInt, f float64) geometry.PosInt {
	return geometry.Pos{X: float64(p.X) * f, Y: float64(p.Y) * f}.ToInt()
}

// DefaultLayout1080p is the reference layout for a 1920x1080 window.
// Other resolutions scale these rects before constructing the engine.
func DefaultLayout1080p() Layout {
	return Layout{
		Panel: geometry.RectInt{Left: 1365, Top: 110, Width: 445, Height: 790},

		Title:         geometry.RectInt{Left: 20, Top: 10, Width: 400, Height: 40},
		MainStatName:  geometry.RectInt{Left: 20, Top: 115, Width: 220, Height: 30},
		MainStatValue: geometry.RectInt{Left: 20, Top: 145, Width: 220, Height: 45},
		Level:         geometry.RectInt{Left: 25, Top: 255, Width: 60, Height: 26},
		Equip:         geometry.RectInt{Left: 20, Top: 735, Width: 320, Height: 30},
		SubStats: [4]geometry.RectInt{
			{Left: 45, Top: 310, Width: 335, Height: 30},
			{Left: 45, Top: 345, Width: 335, Height: 30},
			{Left: 45, Top: 380, Width: 335, Height: 30},
			{Left: 45, Top: 415, Width: 335, Height: 30},
		},

		StarSample: geometry.PosInt{X: 1400, Y: 225},
		FlagPool:   geometry.RectInt{Left: 1390, Top: 115, Width: 180, Height: 1},
		ItemCount:  geometry.RectInt{Left: 60, Top: 25, Width: 180, Height: 30},
		ListStrip:  geometry.RectInt{Left: 100, Top: 120, Width: 1145, Height: 745},

		GridOrigin: geometry.Pos{X: 100, Y: 120},
		GridMargin: geometry.Pos{X: 15, Y: 10},
		ItemSize:   geometry.Size{Width: 125, Height: 155},
		ItemGap:    geometry.Size{Width: 17, Height: 7},

		LockOffset: geometry.PosInt{X: 105, Y: 100},
	}
}
