package songs

import "errors"

var ErrNoSuchSong = errors.New("no such built-in song")

// Built-in scores in M932 index order
var builtin = []struct {
	name string
	bpm  int
	text string
}{
	{"startup", 180, "C5:e E5:e G5:e C6:q"},
	{"success", 160, "G5:e C6:q."},
	{"error", 120, "A3:q R:s A3:q R:s A3:h"},
	{"twinkle", 100, "C4:q C4:q G4:q G4:q A4:q A4:q G4:h F4:q F4:q E4:q E4:q D4:q D4:q C4:h"},
	{"ode", 120, "E4:q E4:q F4:q G4:q G4:q F4:q E4:q D4:q C4:q C4:q D4:q E4:q E4:q. D4:e D4:h"},
}

// Count is the number of built-in scores
func Count() int {
	return len(builtin)
}

// Builtin returns built-in score i
func Builtin(i int) (Score, error) {
	if i < 0 || i >= len(builtin) {
		return Score{}, ErrNoSuchSong
	}
	b := builtin[i]
	return ParseScore(b.name, b.bpm, b.text)
}

// Lookup finds a built-in score by name
func Lookup(name string) (Score, int, error) {
	for i, b := range builtin {
		if b.name == name {
			s, err := ParseScore(b.name, b.bpm, b.text)
			return s, i, err
		}
	}
	return Score{}, -1, ErrNoSuchSong
}
