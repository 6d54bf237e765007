// Package songs holds the note table and the built-in scores played by
// standalone mode and the host tools.
package songs

import (
	"errors"
	"strings"
)

var ErrBadNote = errors.New("bad note name")

// Octave 8 frequencies in centihertz, C8 through B8. Lower octaves halve.
var octave8 = [12]uint32{
	418601, 443492, 469863, 497803, 527404, 558765,
	591991, 627193, 664488, 704000, 745862, 790213,
}

// Semitone offsets of the natural note letters from C
var letterSemitone = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Rest is the frequency that keeps the buzzer silent
const Rest = 0

// Frequency returns the equal-tempered frequency of a note such as "A4",
// "C#5" or "Bb3", rounded to whole hertz. "R" is a rest.
func Frequency(name string) (uint32, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "R" {
		return Rest, nil
	}
	if len(name) < 2 {
		return 0, ErrBadNote
	}
	semitone, ok := letterSemitone[name[0]]
	if !ok {
		return 0, ErrBadNote
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		semitone++
		rest = rest[1:]
	case 'B':
		semitone--
		rest = rest[1:]
	}
	if len(rest) != 1 || rest[0] < '0' || rest[0] > '8' {
		return 0, ErrBadNote
	}
	octave := int(rest[0] - '0')

	// B#3 is C4, Cb4 is B3
	if semitone == 12 {
		semitone = 0
		octave++
	} else if semitone < 0 {
		semitone = 11
		octave--
	}
	if octave < 0 || octave > 8 {
		return 0, ErrBadNote
	}
	div := uint32(100) << (8 - octave)
	return (octave8[semitone] + div/2) / div, nil
}
