package ingest

// Splitter cuts text into overlapping sliding windows.
// Windows are measured in runes so Greek text never splits mid-character.
type Splitter struct {
	size    int // window size in runes
	overlap int // shared runes between consecutive windows
}

// NewSplitter creates a Splitter. Overlap must be smaller than size; config
// validation enforces that before a Splitter is ever built.
func NewSplitter(size, overlap int) *Splitter {
	return &Splitter{size: size, overlap: overlap}
}

// Split returns the sliding windows of text.
//
// The step between window starts is size-overlap, clamped to at least 1.
// A text no longer than one window yields a single chunk; empty text yields
// none. Concatenating the windows with overlaps removed reproduces the text.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.size {
		return []string{text}
	}

	step := s.size - s.overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
