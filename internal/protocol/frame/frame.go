package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/evant/instance-state/internal/core/domain"
)

// Flag identifies the frame type.
type Flag byte

// Frame flags.
const (
	FlagNull  Flag = 0
	FlagData  Flag = 1
	FlagError Flag = 2
)

const (
	// HeaderSize is flag (1) + length (4).
	HeaderSize = 5

	// MaxPayload is the default payload limit for Read.
	MaxPayload = 16 << 20
)

// Frame errors.
var (
	ErrFrameTooLarge = errors.New("frame: payload too large")
	ErrInvalidFlag   = errors.New("frame: invalid flag")
)

// Frame is one delimited buffer.
type Frame struct {
	Flag    Flag
	Payload []byte
}

// Data builds a frame for buf. A nil buf becomes a null frame.
func Data(buf []byte) Frame {
	if buf == nil {
		return Frame{Flag: FlagNull}
	}
	return Frame{Flag: FlagData, Payload: buf}
}

// Error builds an error frame from err. Domain errors keep their code and
// details; anything else is reported as an internal error.
func Error(err error) Frame {
	code, msg := domain.ErrInternal.Code, err.Error()
	var de *domain.DomainError
	if errors.As(err, &de) {
		code, msg = de.Code, de.Details
	}
	payload := make([]byte, 0, len(code)+1+len(msg))
	payload = append(payload, code...)
	payload = append(payload, 0)
	payload = append(payload, msg...)
	return Frame{Flag: FlagError, Payload: payload}
}

// Buffer returns the carried buffer: nil for a null frame, non-nil otherwise.
func (f Frame) Buffer() []byte {
	if f.Flag == FlagNull {
		return nil
	}
	if f.Payload == nil {
		return []byte{}
	}
	return f.Payload
}

// Err decodes an error frame. It returns nil for other flags.
func (f Frame) Err() *domain.DomainError {
	if f.Flag != FlagError {
		return nil
	}
	code, msg, ok := bytes.Cut(f.Payload, []byte{0})
	if !ok {
		return domain.ErrInternal.WithDetails(string(f.Payload))
	}
	return domain.ErrorFromCode(string(code), string(msg))
}

// Write writes f to w in a single call.
func Write(w io.Writer, f Frame) error {
	switch f.Flag {
	case FlagNull, FlagData, FlagError:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidFlag, f.Flag)
	}
	if f.Flag == FlagNull && len(f.Payload) > 0 {
		return fmt.Errorf("frame: null frame with %d payload bytes", len(f.Payload))
	}
	if uint64(len(f.Payload)) > uint64(^uint32(0)) {
		return ErrFrameTooLarge
	}

	out := make([]byte, HeaderSize+len(f.Payload))
	out[0] = byte(f.Flag)
	binary.BigEndian.PutUint32(out[1:HeaderSize], uint32(len(f.Payload)))
	copy(out[HeaderSize:], f.Payload)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("frame: write: %w", err)
	}
	return nil
}

// Read reads one frame from r. max limits the payload size; zero or less
// means MaxPayload.
//
// io.EOF is returned unwrapped when r ends cleanly before a frame starts.
func Read(r io.Reader, max int) (Frame, error) {
	if max <= 0 {
		max = MaxPayload
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("frame: read header: %w", err)
	}

	flag := Flag(header[0])
	length := binary.BigEndian.Uint32(header[1:])

	switch flag {
	case FlagNull:
		if length != 0 {
			return Frame{}, fmt.Errorf("frame: null frame with length %d", length)
		}
		return Frame{Flag: FlagNull}, nil
	case FlagData, FlagError:
	default:
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidFlag, flag)
	}

	if uint64(length) > uint64(max) {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, max)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("frame: read payload: %w", err)
	}
	return Frame{Flag: flag, Payload: payload}, nil
}
