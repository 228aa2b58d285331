package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind frameKind
		wm   int64
	}{
		{name: "sentinel", raw: "END 1700000000", kind: frameSentinel, wm: 1700000000},
		{name: "sentinel with data prefix", raw: "data: END 42", kind: frameSentinel, wm: 42},
		{name: "json", raw: `{"headers":[]}`, kind: framePayload},
		{name: "json with data prefix", raw: `data: {"bets":[]}`, kind: framePayload},
		{name: "comment only", raw: ": keepalive", kind: frameSkip},
		{name: "comment then sentinel", raw: ": hi\nEND 7", kind: frameSentinel, wm: 7},
		{name: "blank", raw: "  ", kind: frameSkip},
		{name: "noise", raw: "hello world", kind: frameSkip},
		{name: "bad sentinel", raw: "END soon", kind: frameSkip},
		{name: "sentinel extra fields", raw: "END 1 2", kind: frameSkip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseFrame([]byte(tt.raw))
			assert.Equal(t, tt.kind, f.kind)
			if tt.kind == frameSentinel {
				assert.Equal(t, tt.wm, f.watermark)
			}
		})
	}
}

func readFrames(t *testing.T, input string, f Framing) []string {
	t.Helper()
	fr := newFrameReader(strings.NewReader(input), f)
	var got []string
	for fr.Scan() {
		if fr.Frame().kind == frameOversized {
			got = append(got, "<oversized>")
			continue
		}
		got = append(got, fr.sc.Text())
	}
	require.NoError(t, fr.Err())
	return got
}

func TestFrameReaderSplitsOnDelimiter(t *testing.T) {
	got := readFrames(t, "a\r\nb\r\n\r\nc\n\n\n\nd", Framing{Delimiter: "\n\n"})
	assert.Equal(t, []string{"a\nb", "c", "", "d"}, got)

	got = readFrames(t, "x\ny\n", Framing{Delimiter: "\n"})
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestFrameReaderSkipsOversizedFrames(t *testing.T) {
	long := strings.Repeat("x", 200)
	input := long + "\n" + `{"headers":[{"id":1}]}` + "\n" + long + "\nEND 5\n" + long
	got := readFrames(t, input, Framing{Delimiter: "\n", MaxFrameBytes: 64})
	assert.Equal(t, []string{"<oversized>", `{"headers":[{"id":1}]}`, "<oversized>", "END 5", "<oversized>"}, got)

	fr := newFrameReader(strings.NewReader(long+"\n\nEND 9\n\n"), Framing{Delimiter: "\n\n", MaxFrameBytes: 64})
	var kinds []frameKind
	for fr.Scan() {
		kinds = append(kinds, fr.Frame().kind)
	}
	require.NoError(t, fr.Err())
	assert.Equal(t, []frameKind{frameOversized, frameSentinel}, kinds)
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload([]byte(`{
		"sports":[{"name":"Football","code":"S"},{"name":"nameless"}],
		"headers":[{"id":1,"homeTeam":"Ajax","kickoff":"2024-05-01T18:00:00Z"},{"homeTeam":"no id"},{"id":2,"kickoff":1714586400000}],
		"bets":[{"id":10,"matchId":1,"outcomes":{"1":{"value":1.85,"pickCode":"P1"},"2":{"value":"3.10"},"X":{"pickCode":"novalue"}}}]
	}`))
	require.NoError(t, err)

	require.Len(t, p.Sports, 1)
	assert.True(t, p.Sports[0].Active)

	require.Len(t, p.Headers, 2)
	assert.Equal(t, "Ajax", *p.Headers[0].HomeTeam)
	assert.Nil(t, p.Headers[0].AwayTeam)
	require.NotNil(t, p.Headers[1].Kickoff)
	assert.Equal(t, p.Headers[0].Kickoff.Unix(), p.Headers[1].Kickoff.Unix())

	require.Len(t, p.Bets, 1)
	assert.Len(t, p.Bets[0].Outcomes, 2)
	assert.Equal(t, "1.85", p.Bets[0].Outcomes["1"].Value.String())
	assert.Equal(t, "3.1", p.Bets[0].Outcomes["2"].Value.String())
}

func TestDecodePayloadShapeMismatch(t *testing.T) {
	for _, raw := range []string{
		`{"headers":"oops"}`,
		`{"headers":[{"id":"abc"}]}`,
		`{"bets":[{"id":1,"outcomes":[1,2]}]}`,
		`{"headers":[{"id":1,"kickoff":"yesterday"}]}`,
		`{not json`,
	} {
		_, err := DecodePayload([]byte(raw))
		assert.ErrorIs(t, err, errShape, raw)
	}
}

func TestDecodePayloadKeepsAbsentOutcomes(t *testing.T) {
	p, err := DecodePayload([]byte(`{"bets":[{"id":3,"matchId":1}]}`))
	require.NoError(t, err)
	require.Len(t, p.Bets, 1)
	assert.Nil(t, p.Bets[0].Outcomes, "absent outcomes must not clear stored ones")
}
