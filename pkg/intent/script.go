package intent

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/menta2k/image-annotator/pkg/types"
)

// ErrUnknownIntent is returned for script lines whose verb is not recognised
var ErrUnknownIntent = errors.New("unknown intent")

var verbs = map[string]Kind{
	"zoom":     ZoomToggle,
	"mark":     Mark,
	"click":    Mark,
	"skip":     Skip,
	"lane":     LaneSwitch,
	"next":     Next,
	"prev":     Previous,
	"previous": Previous,
	"move":     PointerMove,
	"key":      Key,
	"code":     Code,
}

// ParseScript reads one intent per line. Blank lines and lines starting
// with # are skipped.
//
//	move 640 360
//	zoom
//	mark 700 400
//	key n
func ParseScript(r io.Reader) ([]Intent, error) {
	var out []Intent
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		in, err := ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		in.Line = line
		out = append(out, in)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return out, nil
}

// ParseLine parses a single script line
func ParseLine(text string) (Intent, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Intent{}, fmt.Errorf("%w: empty line", ErrUnknownIntent)
	}

	kind, ok := verbs[strings.ToLower(fields[0])]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %q", ErrUnknownIntent, fields[0])
	}
	args := fields[1:]

	switch kind {
	case Mark, PointerMove:
		if len(args) != 2 {
			return Intent{}, fmt.Errorf("%s expects x and y, got %d arguments", kind, len(args))
		}
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return Intent{}, fmt.Errorf("%s: bad x %q: %w", kind, args[0], err)
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return Intent{}, fmt.Errorf("%s: bad y %q: %w", kind, args[1], err)
		}
		return Intent{Kind: kind, Point: types.Point{X: x, Y: y}}, nil
	case Key:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("key expects one key name, got %d arguments", len(args))
		}
		return Intent{Kind: Key, Key: args[0]}, nil
	case Code:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("code expects one key code, got %d arguments", len(args))
		}
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return Intent{}, fmt.Errorf("code: bad key code %q: %w", args[0], err)
		}
		return Intent{Kind: Code, Code: code}, nil
	default:
		if len(args) != 0 {
			return Intent{}, fmt.Errorf("%s takes no arguments", kind)
		}
		return Intent{Kind: kind}, nil
	}
}
