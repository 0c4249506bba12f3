package toon

import (
	"bytes"
	"encoding/binary"
)

// Push constant blocks, laid out as the matching WGSL structs.

type gbufferPush struct {
	Albedo   [4]float32
	Material uint32
	_        [3]uint32
}

type meshPush struct {
	MVP      [16]float32
	Albedo   [4]float32
	Material uint32
	_        [3]uint32
}

type outlinePush struct {
	MVP   [16]float32
	Color [4]float32
	Width float32
	_     [3]float32
}

type pushBlock interface {
	gbufferPush | meshPush | outlinePush
}

func pushBytes[T pushBlock](block T) []byte {
	buf := new(bytes.Buffer)
	// Every push block is fixed-size; Write cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, block)
	return buf.Bytes()
}
