package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/term"

	"gopiezo/host/mcu"
	"gopiezo/host/melody"
	"gopiezo/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
	oid     = flag.Uint("oid", 0, "Buzzer object id")
	pin     = flag.Uint("pin", 15, "Buzzer GPIO")
	book    = flag.String("book", "", "YAML melody book")
	verbose = flag.Bool("verbose", false, "Print every response from the MCU")
)

func main() {
	flag.Parse()

	var melodies *melody.Book
	if *book != "" {
		b, err := melody.Load(*book)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		melodies = b
	}

	mcuConn := mcu.NewMCU()
	fmt.Printf("Connecting to MCU on %s...\n", *device)
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	if err := mcuConn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	mcuConn.PrintDictionary(os.Stdout)

	buzzer, err := mcuConn.ConfigureBuzzer(uint8(*oid), uint32(*pin))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: config_buzzer: %v\n", err)
		os.Exit(1)
	}

	mcuConn.SetAsyncHandler(func(r mcu.Response) {
		if *verbose || r.Name == "buzzer_done" {
			fmt.Printf("\n< %s\n", r)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sh := &shell{mcu: mcuConn, buzzer: buzzer, book: melodies, out: os.Stdout}
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		err := sh.exec(ctx, scanner.Text())
		if err == errQuit {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}
