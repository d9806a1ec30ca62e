package blobstore

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Magic prefixes every file written by the store.
var Magic = [4]byte{'D', 'S', 'K', 'Q'}

// Codec serialises values stored by the store.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	// Version is written into the envelope and checked on read.
	Version() uint8
}

// MsgpackCodecVersion is the envelope version of MsgpackCodec.
const MsgpackCodecVersion uint8 = 1

// MsgpackCodec encodes values as MessagePack.
//
// Interface values decode loosely: signed integers come back as int64,
// unsigned as uint64, floats as float64 and maps as map[string]any.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

func (MsgpackCodec) Version() uint8 { return MsgpackCodecVersion }

const headerLen = len(Magic) + 1

// seal prepends the envelope header to an encoded payload.
func seal(codec Codec, v any) ([]byte, error) {
	payload, err := codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	out := make([]byte, 0, headerLen+len(payload))
	out = append(out, Magic[:]...)
	out = append(out, codec.Version())
	out = append(out, payload...)
	return out, nil
}

// open validates the envelope header and decodes the payload into v.
func open(codec Codec, data []byte, v any) error {
	if len(data) < headerLen || !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return fmt.Errorf("%w: bad header", ErrCorruptOrMissing)
	}
	if version := data[len(Magic)]; version != codec.Version() {
		return fmt.Errorf("%w: codec version %d, expected %d", ErrCorruptOrMissing, version, codec.Version())
	}
	if err := codec.Decode(data[headerLen:], v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptOrMissing, err)
	}
	return nil
}
