package xm

// Amiga periods for five octaves, C-1 to B-5 in legacy naming.
var modPeriods = [60]uint16{
	1712, 1616, 1524, 1440, 1356, 1280, 1208, 1140, 1076, 1016, 960, 907,
	856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480, 453,
	428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240, 226,
	214, 202, 190, 180, 170, 160, 151, 143, 135, 127, 120, 113,
	107, 101, 95, 90, 85, 80, 75, 71, 67, 63, 60, 56,
}

// modNoteOffset maps table index 0 onto the module note numbering, so
// period 428 becomes note 37 (C-3).
const modNoteOffset = 13

// periodToNote returns the note whose period is nearest to period, or 0
// for period 0.
func periodToNote(period uint16) uint8 {
	if period == 0 {
		return NoteEmpty
	}
	best, bestDist := 0, -1
	for i, p := range modPeriods {
		d := int(p) - int(period)
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best + modNoteOffset)
}
