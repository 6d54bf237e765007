package main

import (
	"errors"
	"fmt"
	"os"

	"gopiezo/sim"
)

func exportMIDI(lib *sim.BookLibrary) error {
	if *play == "" {
		return errors.New("-export needs -play")
	}
	seq, n, err := lib.Resolve(*play)
	if err != nil {
		return err
	}
	f, err := os.Create(*export)
	if err != nil {
		return err
	}
	if err := sim.WriteSMF(f, seq, n); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", *export, err)
	}
	return f.Close()
}
