package link

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	require.Equal(t, 64, Checksum("TEST", ""))
	require.Equal(t, 131, Checksum("A", "B"))
	require.Equal(t, Checksum("AB"), Checksum("A", "B"))
	require.Equal(t, 0, Checksum())
}

func TestMessageBytes(t *testing.T) {
	msg := NewMessage("TEST", "")
	require.Equal(t, "<PKT_START>TYPE:TEST|DATA:|CHECKSUM:64<PKT_END>", string(msg.Bytes()))

	var buf bytes.Buffer
	n, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.Bytes(), buf.Bytes())
	require.EqualValues(t, buf.Len(), n)
}

func TestDecode(t *testing.T) {
	data := "1.Work,1.1.Buy milk"
	testCases := []struct {
		name   string
		frame  string
		expect *Message
		reason DecodeReason
	}{
		{
			name:   "valid",
			frame:  string(NewMessage("TASKS", data).Bytes()),
			expect: &Message{Type: "TASKS", Data: data, Checksum: Checksum("TASKS", data)},
		},
		{
			name:   "fields in any order",
			frame:  pkt("CHECKSUM:131|DATA:B|TYPE:A"),
			expect: &Message{Type: "A", Data: "B", Checksum: 131},
		},
		{
			name:   "missing data",
			frame:  pkt("TYPE:TEST|CHECKSUM:64"),
			expect: &Message{Type: "TEST", Checksum: 64},
		},
		{
			name:   "no start",
			frame:  "x" + pkt("TYPE:TEST|DATA:|CHECKSUM:64"),
			reason: MalformedStart,
		},
		{
			name:   "no end",
			frame:  StartMarker + "TYPE:TEST|DATA:|CHECKSUM:64",
			reason: MalformedEnd,
		},
		{
			name:   "altered checksum",
			frame:  pkt("TYPE:TEST|DATA:|CHECKSUM:65"),
			reason: ChecksumMismatch,
		},
		{
			name:   "missing checksum",
			frame:  pkt("TYPE:TEST|DATA:"),
			reason: ChecksumMismatch,
		},
		{
			name:   "altered data",
			frame:  pkt("TYPE:TEST|DATA:y|CHECKSUM:64"),
			reason: ChecksumMismatch,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode([]byte(tc.frame))
			if tc.reason != 0 {
				require.Error(t, err)
				require.True(t, IsDecodeReason(err, tc.reason), "unexpected error %v", err)
				require.Nil(t, msg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expect, msg)
		})
	}
}

func TestDecodeTruncatesFields(t *testing.T) {
	long := string(bytes.Repeat([]byte{'a'}, MaxTypeLen+10))
	frame := pkt("TYPE:" + long + "|DATA:|CHECKSUM:0")
	_, err := Decode([]byte(frame))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, Checksum(long[:MaxTypeLen]), de.Expected)
}

func TestDecodeErrorMessage(t *testing.T) {
	require.Equal(t, "decode error: malformed start", (&DecodeError{Reason: MalformedStart}).Error())
	require.Equal(t, "decode error: checksum mismatch (expect 64, got \"65\")",
		(&DecodeError{Reason: ChecksumMismatch, Expected: 64, Actual: "65"}).Error())
}

func TestMaxDataFor(t *testing.T) {
	for _, typ := range []string{TypeTasks, TypeResult, TypeError, TypeTest} {
		max := MaxDataFor(typ)
		require.Less(t, max, MaxDataLen, typ)
		// worst case checksum has 3 digits.
		data := strings.Repeat("\xff", max)
		msg := &Message{Type: typ, Data: data, Checksum: 255}
		_, ok := FrameFrom(msg.Bytes())
		require.True(t, ok, typ)
		msg.Data += "x"
		_, ok = FrameFrom(msg.Bytes())
		require.False(t, ok, typ)
	}
}

func TestSanitizeData(t *testing.T) {
	testCases := []struct {
		in, out string
	}{
		{"task 1.2 finished", "task 1.2 finished"},
		{"bogus|x", "bogusx"},
		{"a<PKT_END>b", "ab"},
		{"<PKT_|START>", ""},
	}
	for _, c := range testCases {
		require.Equal(t, c.out, SanitizeData(c.in), c.in)
		require.Equal(t, c.in == c.out, IsValidData(c.in), c.in)
	}
}

func TestNewReply(t *testing.T) {
	msg := NewReply(TypeError, `unknown action: "bogus|x"`)
	require.Equal(t, `unknown action: "bogusx"`, msg.Data)
	decoded, err := Decode(msg.Bytes())
	require.NoError(t, err)
	require.Equal(t, msg.Data, decoded.Data)

	msg = NewReply(TypeError, strings.Repeat("é", MaxDataLen))
	f, ok := FrameFrom(msg.Bytes())
	require.True(t, ok)
	require.True(t, len(msg.Data) <= MaxDataFor(TypeError))
	require.True(t, utf8.ValidString(msg.Data))
	_, err = Decode(f.Bytes())
	require.NoError(t, err)
}
