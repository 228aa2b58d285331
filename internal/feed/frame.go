package feed

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Framing describes how a text stream is cut into frames.
type Framing struct {
	// Delimiter separates frames, e.g. "\n\n" on the initial feed and "\n"
	// on the update feed. CRs are stripped before splitting.
	Delimiter string
	// MaxFrameBytes bounds a single frame; a longer frame is dropped up to
	// the next delimiter and reported as oversized.
	MaxFrameBytes int
}

const defaultMaxFrameBytes = 16 << 20

type frameKind int

const (
	frameSkip frameKind = iota
	framePayload
	frameSentinel
	frameOversized
)

type frame struct {
	kind      frameKind
	payload   []byte
	watermark int64
}

// frameReader yields classified frames from a delimited text stream.
type frameReader struct {
	sc    *bufio.Scanner
	split *frameSplitter
}

func newFrameReader(r io.Reader, f Framing) *frameReader {
	delim := f.Delimiter
	if delim == "" {
		delim = "\n"
	}
	limit := f.MaxFrameBytes
	if limit <= 0 {
		limit = defaultMaxFrameBytes
	}
	limit = max(limit, 2*len(delim))
	initial := min(64*1024, limit)

	split := &frameSplitter{delim: []byte(delim), limit: limit}
	sc := bufio.NewScanner(&crStripper{r: r})
	sc.Buffer(make([]byte, 0, initial), limit)
	sc.Split(split.split)
	return &frameReader{sc: sc, split: split}
}

// Scan advances to the next frame.
func (fr *frameReader) Scan() bool { return fr.sc.Scan() }

// Frame classifies the current frame.
func (fr *frameReader) Frame() frame {
	if fr.split.oversized {
		return frame{kind: frameOversized}
	}
	return parseFrame(fr.sc.Bytes())
}

// Err returns the first read error, if any.
func (fr *frameReader) Err() error { return fr.sc.Err() }

// frameSplitter cuts frames on delim. A frame that reaches limit without a
// delimiter is discarded through the next delimiter and surfaces as one
// empty token with oversized set, so the reader keeps going.
type frameSplitter struct {
	delim      []byte
	limit      int
	discarding bool
	oversized  bool
}

func (s *frameSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	s.oversized = false
	if atEOF && len(data) == 0 {
		if s.discarding {
			return s.drop(0)
		}
		return 0, nil, nil
	}
	i := bytes.Index(data, s.delim)
	if s.discarding {
		switch {
		case i >= 0:
			return s.drop(i + len(s.delim))
		case atEOF:
			return s.drop(len(data))
		default:
			// keep a possible partial delimiter at the tail
			return max(0, len(data)-len(s.delim)+1), nil, nil
		}
	}
	if i >= 0 {
		return i + len(s.delim), data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	if len(data) >= s.limit {
		s.discarding = true
		return len(data) - len(s.delim) + 1, nil, nil
	}
	return 0, nil, nil
}

func (s *frameSplitter) drop(advance int) (int, []byte, error) {
	s.discarding = false
	s.oversized = true
	return advance, []byte{}, nil
}

// crStripper drops carriage returns so "\r\n" framing behaves like "\n".
type crStripper struct {
	r io.Reader
}

func (c *crStripper) Read(p []byte) (int, error) {
	for {
		n, err := c.r.Read(p)
		w := 0
		for _, b := range p[:n] {
			if b != '\r' {
				p[w] = b
				w++
			}
		}
		if w > 0 || err != nil {
			return w, err
		}
	}
}

// parseFrame classifies a raw frame. Comment lines (":") and blank lines are
// dropped and a "data:" prefix is unwrapped before the remainder is checked
// for the "END <n>" sentinel or a JSON payload. Anything else is skipped.
func parseFrame(raw []byte) frame {
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimSpace(rest)
			if line == "" {
				continue
			}
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return frame{kind: frameSkip}
	}
	body := strings.Join(lines, "\n")

	if wm, ok := parseSentinel(body); ok {
		return frame{kind: frameSentinel, watermark: wm}
	}
	if body[0] == '{' {
		return frame{kind: framePayload, payload: []byte(body)}
	}
	return frame{kind: frameSkip}
}

func parseSentinel(s string) (int64, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 || fields[0] != "END" {
		return 0, false
	}
	wm, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return wm, true
}
