package scanner

// GridAddress is one (row, col) slot of the visible page.
type GridAddress struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// scanState tracks scan progress across pages. It is owned exclusively
// by the controller for the duration of one run.
type scanState struct {
	scannedRow   int
	scannedCount int
	startRow     int

	itemCount  int
	totalRow   int
	lastRowCol int

	// Running average of wheel notches per scrolled row, used by the
	// estimated-scroll fast path.
	scrollSum    int
	scrolledRows int
}

// newScanState derives the page invariants from the item total.
// totalRow is the row count of the full list; lastRowCol is how many
// cells the final row holds.
func newScanState(itemCount, cols int) *scanState {
	lastRowCol := itemCount % cols
	if lastRowCol == 0 {
		lastRowCol = cols
	}
	return &scanState{
		itemCount:  itemCount,
		totalRow:   (itemCount + cols - 1) / cols,
		lastRowCol: lastRowCol,
	}
}

// remainingScanParams computes how far to scroll for the next page and
// which row the fresh page starts at. When fewer rows remain than the
// page holds, the page scrolls only partially and scanning resumes
// below the rows that stay on screen.
func (s *scanState) remainingScanParams(rows, cols int) (scrollRow, startRow int) {
	remain := s.itemCount - s.scannedCount
	remainRow := (remain + cols - 1) / cols
	scrollRow = remainRow
	if scrollRow > rows {
		scrollRow = rows
	}
	startRow = rows - scrollRow
	return scrollRow, startRow
}

// rowLength returns how many cells a row of the full list holds; only
// the final row can be short.
func (s *scanState) rowLength(row, cols int) int {
	if row == s.totalRow-1 {
		return s.lastRowCol
	}
	return cols
}

// recordScroll feeds one row-scroll observation into the running
// average used for scroll estimation.
func (s *scanState) recordScroll(notches int) {
	s.scrollSum += notches
	s.scrolledRows++
}

// avgNotchesPerRow reports the mean wheel notches one row-scroll took,
// false until enough samples exist to trust the estimate.
func (s *scanState) avgNotchesPerRow() (float64, bool) {
	if s.scrolledRows < 5 {
		return 0, false
	}
	return float64(s.scrollSum) / float64(s.scrolledRows), true
}
