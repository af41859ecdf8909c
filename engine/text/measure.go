package text

// MeasureText returns the rendered size of s at the given pixel size,
// scaled from the font's rasterized size. Matches EmitGlyphRun's pen
// behavior: '\n' starts a new line, '\r' is ignored, unknown runes advance
// by a space width.
func MeasureText(f *Font, s string, size float32) (width, height float32) {
	var lineW float32
	prev := rune(-1)
	lineH := f.LineHeight()
	height = lineH

	scale := size / f.SizePx

	for _, r := range s {
		switch r {
		case '\r':
			continue
		case '\n':
			if lineW > width {
				width = lineW
			}
			lineW = 0
			height += lineH
			prev = -1
			continue
		}

		g, ok := f.Glyphs[r]
		if !ok {
			if sp, ok2 := f.Glyphs[' ']; ok2 {
				lineW += sp.Advance
			}
			prev = r
			continue
		}

		if prev >= 0 {
			lineW += f.Kern(prev, r)
		}

		lineW += g.Advance
		prev = r
	}

	if lineW > width {
		width = lineW
	}
	return width * scale, height * scale
}

// Baseline-to-top distance (useful to position text by top-left).
func BaselineToTop(f *Font) float32    { return f.AscentPx }
func BaselineToBottom(f *Font) float32 { return -f.DescentPx }
