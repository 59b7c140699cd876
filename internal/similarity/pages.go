package similarity

// ExtractPageCount parses a page count out of a free-text pagination
// statement as catalogs record it: "188 S.", "XV, 250 p.", "192 pages",
// "A35, B21 S.". Roman numeral prefaces carry no digits and are skipped
// naturally; when several arabic numbers appear the largest one is taken,
// since front matter and section counts are smaller than the page count.
// ok is false when the statement contains no number.
func ExtractPageCount(s string) (pages int, ok bool) {
	best := 0
	cur := 0
	inNumber := false

	flush := func() {
		if inNumber && cur > best {
			best = cur
		}
		cur = 0
		inNumber = false
	}

	for _, r := range s {
		if r >= '0' && r <= '9' {
			// Guard against pathological digit runs overflowing.
			if cur < 1<<20 {
				cur = cur*10 + int(r-'0')
			}
			inNumber = true
			continue
		}
		flush()
	}
	flush()

	if best == 0 {
		return 0, false
	}
	return best, true
}
