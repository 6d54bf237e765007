package songs

import (
	"errors"
	"testing"
)

func TestFrequency(t *testing.T) {
	tests := []struct {
		name string
		want uint32
	}{
		{"A4", 440},
		{"a4", 440},
		{"C4", 262},
		{"C#4", 277},
		{"Db4", 277},
		{"A3", 220},
		{"C5", 523},
		{"B#3", 262},
		{"Cb4", 247},
		{"A8", 7040},
		{"R", 0},
	}
	for _, tt := range tests {
		got, err := Frequency(tt.name)
		if err != nil {
			t.Errorf("Frequency(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Frequency(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}

	for _, bad := range []string{"", "H4", "C", "C9", "C#", "C44", "B#8"} {
		if _, err := Frequency(bad); !errors.Is(err, ErrBadNote) {
			t.Errorf("Frequency(%q) = %v, want ErrBadNote", bad, err)
		}
	}
}

func TestScoreSequence(t *testing.T) {
	s, err := ParseScore("test", 120, "A4:q R:e C5:h. E4:s")
	if err != nil {
		t.Fatal(err)
	}
	seq, n, err := s.Sequence()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{120, 440, 500, 0, 250, 523, 1500, 330, 125}
	if n != 4 || len(seq) != len(want) {
		t.Fatalf("sequence %v (%d notes), want %v", seq, n, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("sequence %v, want %v", seq, want)
		}
	}
}

func TestParseScoreErrors(t *testing.T) {
	for _, text := range []string{"A4", "A4:x", "Z4:q", "A4:q..", "A4:"} {
		_, err := ParseScore("bad", 120, text)
		if !errors.Is(err, ErrBadScore) {
			t.Errorf("ParseScore(%q) = %v, want ErrBadScore", text, err)
		}
		var se *ScoreError
		if !errors.As(err, &se) || se.Token != text {
			t.Errorf("ParseScore(%q) error does not name the token: %v", text, err)
		}
	}
	s, _ := ParseScore("slow", 0, "A4:q")
	if _, _, err := s.Sequence(); err == nil {
		t.Error("zero tempo score rendered")
	}
}

func TestBuiltins(t *testing.T) {
	for i := 0; i < Count(); i++ {
		s, err := Builtin(i)
		if err != nil {
			t.Fatalf("builtin %d: %v", i, err)
		}
		seq, n, err := s.Sequence()
		if err != nil || n == 0 || len(seq) != 1+2*n {
			t.Errorf("builtin %s renders to %d values, %d notes, %v", s.Name, len(seq), n, err)
		}
	}
	if _, err := Builtin(Count()); !errors.Is(err, ErrNoSuchSong) {
		t.Errorf("out of range: %v", err)
	}
	if _, i, err := Lookup("twinkle"); err != nil || i != 3 {
		t.Errorf("Lookup(twinkle) = %d, %v", i, err)
	}
}
