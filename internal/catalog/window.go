package catalog

// Window computes the half-open index range [Start, End) of items that should
// be materialized for a viewport, given a pixel scroll offset, the viewport
// height, a per-item height estimate, and a fixed overscan margin in items.
// The range is clamped to [0, total).
func Window(total, scrollOffset, viewportHeight, itemHeight, overscan int) (start, end int) {
	if total <= 0 || itemHeight <= 0 || viewportHeight <= 0 {
		return 0, 0
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}

	start = scrollOffset/itemHeight - overscan
	if start < 0 {
		start = 0
	}

	// Last partially visible row, plus overscan below.
	end = (scrollOffset+viewportHeight-1)/itemHeight + 1 + overscan
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}
