package gcode

import (
	"errors"
	"strconv"

	"gopiezo/standalone"
)

var (
	ErrNoCommand = errors.New("line has no G, M or T word")
	ErrBadNumber = errors.New("bad number")
)

// Parser turns text lines into GCodeCommands
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseLine parses one line. Blank lines return a nil command; comment
// only lines return a command with just Comment set. A letter with no
// number is recorded as 0, the way G-code flags are written.
func (p *Parser) ParseLine(line string) (*standalone.GCodeCommand, error) {
	i := skipSpace(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &standalone.GCodeCommand{Parameters: make(map[byte]float64)}
	if isComment(line[i]) {
		cmd.Comment = line[i:]
		return cmd, nil
	}

	switch toUpper(line[i]) {
	case 'G', 'M', 'T':
		cmd.Type = toUpper(line[i])
	default:
		return nil, ErrNoCommand
	}
	i++
	end := scanNumber(line, i)
	if end == i {
		return nil, ErrNoCommand
	}
	num, err := strconv.Atoi(line[i:end])
	if err != nil {
		return nil, ErrBadNumber
	}
	cmd.Number = num
	i = end

	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			break
		}
		if isComment(line[i]) {
			cmd.Comment = line[i:]
			break
		}
		if !isLetter(line[i]) {
			return nil, ErrBadNumber
		}
		letter := toUpper(line[i])
		i++
		end := scanNumber(line, i)
		if end == i {
			cmd.Parameters[letter] = 0
			continue
		}
		value, err := strconv.ParseFloat(line[i:end], 64)
		if err != nil {
			return nil, ErrBadNumber
		}
		cmd.Parameters[letter] = value
		i = end
	}

	return cmd, nil
}

// scanNumber returns the end of the numeric text starting at pos
func scanNumber(s string, pos int) int {
	i := pos
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := false
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		digits = digits || s[i] != '.'
		i++
	}
	if !digits {
		return pos
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

func isComment(c byte) bool {
	return c == ';' || c == '('
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
