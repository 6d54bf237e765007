// Package melody loads YAML melody books for the host tools.
//
//	tempo: 120
//	melodies:
//	  - name: doorbell
//	    bpm: 90
//	    notes: "E5:h C5:h."
//	  - name: beep
//	    sequence: [120, 440, 500, 523, 500]
//
// A melody is either a score in the songs notation or a raw sequence in
// the [bpm, note, duration, ...] layout.
package melody

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gopiezo/core"
	"gopiezo/standalone/songs"
)

var (
	ErrNotFound = errors.New("melody not found")
	ErrNoNotes  = errors.New("melody has neither notes nor sequence")
)

type Melody struct {
	Name     string `yaml:"name"`
	BPM      int    `yaml:"bpm"`
	Notes    string `yaml:"notes"`
	Sequence []int  `yaml:"sequence"`
}

type Book struct {
	Tempo    int      `yaml:"tempo"`
	Melodies []Melody `yaml:"melodies"`
}

func Load(filename string) (*Book, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("melody: load %s: %w", filename, err)
	}
	book, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("melody: %s: %w", filename, err)
	}
	return book, nil
}

// Parse decodes a book and checks every melody renders
func Parse(data []byte) (*Book, error) {
	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if book.Tempo == 0 {
		book.Tempo = core.DefaultBPM
	}
	seen := make(map[string]bool, len(book.Melodies))
	for _, m := range book.Melodies {
		if m.Name == "" {
			return nil, errors.New("melody without a name")
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("duplicate melody %q", m.Name)
		}
		seen[m.Name] = true
		if _, _, err := book.Render(m); err != nil {
			return nil, fmt.Errorf("melody %q: %w", m.Name, err)
		}
	}
	return &book, nil
}

// Names lists the book's melodies in file order
func (b *Book) Names() []string {
	names := make([]string, len(b.Melodies))
	for i, m := range b.Melodies {
		names[i] = m.Name
	}
	return names
}

// Find looks a melody up by name
func (b *Book) Find(name string) (Melody, error) {
	if b != nil {
		for _, m := range b.Melodies {
			if m.Name == name {
				return m, nil
			}
		}
	}
	return Melody{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Render turns m into a sequence and its note count. Scores without
// their own bpm use the book tempo.
func (b *Book) Render(m Melody) ([]int, int, error) {
	if m.Notes != "" {
		bpm := m.BPM
		if bpm == 0 {
			bpm = b.Tempo
		}
		score, err := songs.ParseScore(m.Name, bpm, m.Notes)
		if err != nil {
			return nil, 0, err
		}
		return score.Sequence()
	}
	if len(m.Sequence) == 0 {
		return nil, 0, ErrNoNotes
	}
	if len(m.Sequence)%2 == 0 {
		return nil, 0, core.ErrMalformedSequence
	}
	seq := append([]int(nil), m.Sequence...)
	if m.BPM != 0 {
		seq[0] = m.BPM
	}
	length := (len(seq) - 1) / 2
	if _, err := core.ParseSequence(seq, length); err != nil {
		return nil, 0, err
	}
	return seq, length, nil
}

// Resolve renders a named melody from the book, falling back to the
// built-in scores. A nil book only sees built-ins.
func Resolve(b *Book, name string) ([]int, int, error) {
	if m, err := b.Find(name); err == nil {
		return b.Render(m)
	}
	score, _, err := songs.Lookup(name)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return score.Sequence()
}
