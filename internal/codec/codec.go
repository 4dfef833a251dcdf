// Package codec compresses records before they are handed to the slotted
// file. The record layer itself stores opaque bytes; drivers opt in.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4"
)

var ErrUnknownCodec = errors.New("codec: unknown codec")

type Codec interface {
	Name() string
	Encode(in []byte) ([]byte, error)
	Decode(in []byte) ([]byte, error)
}

// ByName returns "none", "snappy" or "lz4".
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None{}, nil
	case "snappy":
		return Snappy{}, nil
	case "lz4":
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

type None struct{}

func (None) Name() string                     { return "none" }
func (None) Encode(in []byte) ([]byte, error) { return in, nil }
func (None) Decode(in []byte) ([]byte, error) { return in, nil }

type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) Encode(in []byte) ([]byte, error) {
	return snappy.Encode(nil, in), nil
}

func (Snappy) Decode(in []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, in)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return out, nil
}

// LZ4 uses the frame format without content checksum; records are short and
// the page layer already bounds them.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Encode(in []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := lz4.NewWriter(buf)
	w.NoChecksum = true
	if _, err := w.Write(in); err != nil {
		return nil, fmt.Errorf("lz4 encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (LZ4) Decode(in []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(lz4.NewReader(bytes.NewReader(in))); err != nil {
		return nil, fmt.Errorf("lz4 decode: %w", err)
	}
	return buf.Bytes(), nil
}
