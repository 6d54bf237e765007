package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"gopiezo/host/mcu"
	"gopiezo/host/melody"
)

var (
	errQuit  = errors.New("quit")
	errUsage = errors.New("usage")
)

type shell struct {
	mcu    *mcu.MCU
	buzzer *mcu.Buzzer
	book   *melody.Book
	out    io.Writer
}

// exec runs one input line. Arguments are split shell style so melody
// names may be quoted.
func (sh *shell) exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		printHelp(sh.out)
	case "dict":
		sh.mcu.PrintDictionary(sh.out)
	case "list":
		if sh.book != nil {
			for _, name := range sh.book.Names() {
				fmt.Fprintln(sh.out, name)
			}
		}
	case "bpm":
		if len(args) != 2 {
			return fmt.Errorf("%w: bpm <beats per minute>", errUsage)
		}
		bpm, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return sh.buzzer.SetBPM(bpm)
	case "note":
		if len(args) != 3 {
			return fmt.Errorf("%w: note <hz> <ms>", errUsage)
		}
		vals, err := parseUints(args[1:])
		if err != nil {
			return err
		}
		return sh.buzzer.PlayNote(vals[0], vals[1])
	case "play", "wait":
		if len(args) != 2 {
			return fmt.Errorf("%w: %s <melody>", errUsage, args[0])
		}
		seq, n, err := melody.Resolve(sh.book, args[1])
		if err != nil {
			return err
		}
		if args[0] == "play" {
			return sh.buzzer.PlaySequence(seq, n)
		}
		return sh.buzzer.PlayAndWait(ctx, seq, n)
	case "query":
		st, err := sh.buzzer.Query()
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "bpm:%d note:%d/%d state:%s\n", st.BPM, st.CurrentNote, st.SongLength, st.State)
	case "send":
		if len(args) < 2 {
			return fmt.Errorf("%w: send <command> [name=value ...]", errUsage)
		}
		params, err := parseParams(args[2:])
		if err != nil {
			return err
		}
		return sh.mcu.SendText(args[1], params)
	default:
		return fmt.Errorf("unknown command %q (type 'help' for available commands)", args[0])
	}
	return nil
}

func parseUints(args []string) ([]uint32, error) {
	vals := make([]uint32, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, err
		}
		vals[i] = uint32(v)
	}
	return vals, nil
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: parameter %q is not name=value", errUsage, a)
		}
		params[k] = v
	}
	return params, nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	fmt.Fprintln(w, "  help                  - Show this help message")
	fmt.Fprintln(w, "  dict                  - Print dictionary summary")
	fmt.Fprintln(w, "  list                  - List melodies in the book")
	fmt.Fprintln(w, "  bpm <bpm>             - Set the buzzer tempo")
	fmt.Fprintln(w, "  note <hz> <ms>        - Play one note")
	fmt.Fprintln(w, "  play <melody>         - Start a melody from the book or a built-in")
	fmt.Fprintln(w, "  wait <melody>         - Play a melody and wait for it to finish")
	fmt.Fprintln(w, "  query                 - Show buzzer state")
	fmt.Fprintln(w, "  send <cmd> [k=v ...]  - Send any dictionary command")
	fmt.Fprintln(w, "  quit/exit/q           - Exit the program")
	fmt.Fprintln(w)
}
