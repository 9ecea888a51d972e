package link

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Packet markers and field labels.
const (
	StartMarker    = "<PKT_START>"
	EndMarker      = "<PKT_END>"
	FieldDelimiter = "|"

	FieldType     = "TYPE"
	FieldData     = "DATA"
	FieldChecksum = "CHECKSUM"
)

// Message types sent by the companion device.
const (
	TypeTasks  = "TASKS"
	TypeResult = "RESULT"
	TypeError  = "ERROR"
	TypeStatus = "STATUS"
	TypeHelp   = "HELP"
	TypeTest   = "TEST"
)

// Maximum lengths of decoded fields, longer values are truncated.
const (
	MaxTypeLen     = 63
	MaxDataLen     = 1023
	MaxChecksumLen = 15
)

var (
	startMarker = []byte(StartMarker)
	endMarker   = []byte(EndMarker)
)

// Message is a decoded packet.
type Message struct {
	Type     string
	Data     string
	Checksum int
}

// NewMessage creates a Message with the checksum computed.
func NewMessage(typ, data string) *Message {
	return &Message{Type: typ, Data: data, Checksum: Checksum(typ, data)}
}

// Checksum computes the sum of all bytes modulo 256.
func Checksum(parts ...string) int {
	var sum byte
	for _, part := range parts {
		for i := 0; i < len(part); i++ {
			sum += part[i]
		}
	}
	return int(sum)
}

// Bytes returns the encoded packet.
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer
	m.WriteTo(&buf)
	return buf.Bytes()
}

// MaxDataFor returns the longest data of a message of type typ whose
// encoded packet still fits a Frame slot.
func MaxDataFor(typ string) int {
	overhead := len(StartMarker) + len(EndMarker) +
		len(FieldType) + 1 + len(typ) +
		len(FieldDelimiter) + len(FieldData) + 1 +
		len(FieldDelimiter) + len(FieldChecksum) + 1 + 3
	n := MaxFrameSize - overhead
	if n > MaxDataLen {
		n = MaxDataLen
	}
	return n
}

var dataSanitizer = strings.NewReplacer(FieldDelimiter, "", StartMarker, "", EndMarker, "")

// SanitizeData removes what would break the framing or the field
// extraction of a packet carrying s as data.
func SanitizeData(s string) string {
	for {
		r := dataSanitizer.Replace(s)
		if r == s {
			return r
		}
		s = r
	}
}

// IsValidData reports whether s can be carried as data unchanged.
func IsValidData(s string) bool {
	return SanitizeData(s) == s
}

// NewReply creates a Message with sanitized data, truncated on a rune
// boundary so the packet fits a Frame slot.
func NewReply(typ, data string) *Message {
	data = SanitizeData(data)
	if max := MaxDataFor(typ); len(data) > max {
		n := max
		for n > 0 && !utf8.RuneStart(data[n]) {
			n--
		}
		data = data[:n]
	}
	return NewMessage(typ, data)
}

// WriteTo writes the encoded packet.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Grow(len(StartMarker) + len(m.Type) + len(m.Data) + 32 + len(EndMarker))
	buf.WriteString(StartMarker)
	buf.WriteString(FieldType + ":" + m.Type)
	buf.WriteString(FieldDelimiter + FieldData + ":" + m.Data)
	buf.WriteString(FieldDelimiter + FieldChecksum + ":" + strconv.Itoa(m.Checksum))
	buf.WriteString(EndMarker)
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Decode validates a frame and extracts the message.
func Decode(frame []byte) (*Message, error) {
	if !bytes.HasPrefix(frame, startMarker) {
		return nil, &DecodeError{Reason: MalformedStart}
	}
	if !bytes.Contains(frame, endMarker) {
		return nil, &DecodeError{Reason: MalformedEnd}
	}
	msg := &Message{
		Type: extractField(frame, FieldType, MaxTypeLen),
		Data: extractField(frame, FieldData, MaxDataLen),
	}
	checksum := extractField(frame, FieldChecksum, MaxChecksumLen)
	expected := Checksum(msg.Type, msg.Data)
	val, err := strconv.Atoi(checksum)
	if err != nil || val != expected {
		return nil, &DecodeError{Reason: ChecksumMismatch, Expected: expected, Actual: checksum}
	}
	msg.Checksum = val
	return msg, nil
}

// extractField reads the value after "name:" up to the next delimiter
// or the end marker. A missing field is an empty string.
func extractField(frame []byte, name string, maxLen int) string {
	label := []byte(name + ":")
	pos := bytes.Index(frame, label)
	if pos < 0 {
		return ""
	}
	val := frame[pos+len(label):]
	end := bytes.Index(val, []byte(FieldDelimiter))
	if end < 0 {
		end = bytes.Index(val, endMarker)
	}
	if end < 0 {
		return ""
	}
	if end > maxLen {
		end = maxLen
	}
	return string(val[:end])
}
