package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PKMStreamer decodes the Ericsson Texture Compression PKM container
// (version "10"): a 16-byte big-endian header followed by raw
// ETC1/ETC2 block data, 8 bytes per 4x4 block. It supports only
// CapLoadTexture, for the "pkm" extension — the format has no defined
// save path in the original engine either.
type PKMStreamer struct{ Base }

const pkmExtension = "pkm"

type pkmHeader struct {
	Magic        [4]byte
	Version      [2]byte
	TextureType  [2]byte
	Width        uint16
	Height       uint16
	ActiveWidth  uint16
	ActiveHeight uint16
}

func (PKMStreamer) Capabilities(extension string) Capability {
	if extension == pkmExtension {
		return CapLoadTexture
	}
	return 0
}

// LoadTexture parses a PKM 10 header and returns its ETC2 RGB payload
// uninterpreted; the compressed block data's size is derived from the
// header's padded width/height, per the format's 4x4 block tiling.
func (PKMStreamer) LoadTexture(r io.Reader) (*TextureData, error) {
	var h pkmHeader
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("pkm: reading header: %w", err)
	}
	if string(h.Magic[:]) != "PKM " {
		return nil, newErr("pkm: invalid magic")
	}
	if string(h.Version[:]) != "10" {
		return nil, newErr("pkm: unsupported version, want \"10\"")
	}
	if h.TextureType != [2]byte{0, 0} {
		return nil, newErr("pkm: unsupported texture type")
	}

	size := 8 * ((int(h.Width) + 3) >> 2) * ((int(h.Height) + 3) >> 2)
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("pkm: reading block data: %w", err)
	}

	return &TextureData{
		Width:  int(h.ActiveWidth),
		Height: int(h.ActiveHeight),
		Pixel:  PixelETC2RGB8Unorm,
		Data:   data,
	}, nil
}
