package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"gopiezo/core"
	"gopiezo/sim"
)

var (
	book     = flag.String("book", "", "YAML melody book, reloaded when it changes")
	play     = flag.String("play", "", "Melody to play, then exit")
	export   = flag.String("export", "", "Write the -play melody to this MIDI file instead of playing it")
	pin      = flag.Uint("pin", 15, "Simulated buzzer pin")
	headless = flag.Bool("headless", false, "Print notes instead of playing them")
	useTUI   = flag.Bool("tui", false, "Interactive melody browser")
)

func main() {
	flag.Parse()
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	lib, err := sim.LoadLibrary(*book)
	if err != nil {
		return err
	}

	if *export != "" {
		return exportMIDI(lib)
	}
	if *play == "" && !*useTUI {
		return errors.New("nothing to do: give -play, -export or -tui")
	}

	clock := sim.NewWallClock()
	var driver core.ToneDriver
	if *headless {
		driver = sim.NewRecorder(clock)
	} else {
		speaker, err := sim.NewSpeaker()
		if err != nil {
			return err
		}
		defer speaker.Close()
		driver = speaker
	}

	player, err := sim.NewPlayer(driver, clock, core.TonePin(*pin))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return player.Run(ctx)
	})

	reload := make(chan struct{}, 1)
	if *book != "" {
		w, err := sim.NewWatcher(*book)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return watchBook(ctx, w, lib, reload)
		})
	}

	if *useTUI {
		g.Go(func() error {
			defer stop()
			prog := tea.NewProgram(sim.NewModel(ctx, player, lib, reload), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := prog.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	} else {
		g.Go(func() error {
			defer stop()
			return playOnce(ctx, player, lib, *play)
		})
	}

	return g.Wait()
}

// watchBook reloads the library whenever the book file changes
func watchBook(ctx context.Context, w *sim.Watcher, lib *sim.BookLibrary, reload chan<- struct{}) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Events:
			if !ok {
				return nil
			}
			if err := lib.Reload(); err != nil {
				fmt.Fprintf(os.Stderr, "reload: %v\n", err)
				continue
			}
			select {
			case reload <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if ok {
				fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			}
		}
	}
}

// playOnce plays one melody to the end, printing each note
func playOnce(ctx context.Context, player *sim.Player, lib *sim.BookLibrary, name string) error {
	seq, n, err := lib.Resolve(name)
	if err != nil {
		return err
	}
	if err := player.Play(ctx, name, seq, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-player.Updates():
			if st.LastErr != nil {
				fmt.Fprintf(os.Stderr, "note %d: %v\n", st.Note, st.LastErr)
			}
			if st.Note > 0 {
				fmt.Printf("%s %d/%d\n", name, st.Note, st.Length)
			}
			if st.Note >= st.Length {
				// let the last note sound out
				return waitMS(ctx, seq[2*n])
			}
		}
	}
}

func waitMS(ctx context.Context, ms int) error {
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
