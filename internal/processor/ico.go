package processor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/image/bmp"
)

const (
	icoHeaderLen   = 6
	icoEntryLen    = 16
	bmpFileHdrLen  = 14
	dibInfoLen     = 40
	maxIcoEntries  = 256
	dibHeightField = 8
)

type icoEntry struct {
	width, height int
	bitCount      int
	size, offset  uint32
}

// decodeICO decodes the largest image in a Windows icon or cursor file.
// Entries are either embedded PNG streams or headerless BMPs (DIBs) whose
// height covers both the colour and the AND mask.
func decodeICO(data []byte) (ImageInfo, error) {
	if len(data) < icoHeaderLen {
		return ImageInfo{}, errors.New("ico: short header")
	}
	if binary.LittleEndian.Uint16(data[0:2]) != 0 {
		return ImageInfo{}, errors.New("ico: bad reserved field")
	}
	if kind := binary.LittleEndian.Uint16(data[2:4]); kind != 1 && kind != 2 {
		return ImageInfo{}, fmt.Errorf("ico: unknown resource type %d", kind)
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 || count > maxIcoEntries {
		return ImageInfo{}, fmt.Errorf("ico: implausible entry count %d", count)
	}
	if len(data) < icoHeaderLen+count*icoEntryLen {
		return ImageInfo{}, errors.New("ico: truncated directory")
	}

	best := -1
	var entries []icoEntry
	for i := 0; i < count; i++ {
		e := data[icoHeaderLen+i*icoEntryLen:]
		entry := icoEntry{
			width:    int(e[0]),
			height:   int(e[1]),
			bitCount: int(binary.LittleEndian.Uint16(e[6:8])),
			size:     binary.LittleEndian.Uint32(e[8:12]),
			offset:   binary.LittleEndian.Uint32(e[12:16]),
		}
		// Zero means 256 in the directory.
		if entry.width == 0 {
			entry.width = 256
		}
		if entry.height == 0 {
			entry.height = 256
		}
		entries = append(entries, entry)

		if best < 0 || larger(entry, entries[best]) {
			best = i
		}
	}

	entry := entries[best]
	end := uint64(entry.offset) + uint64(entry.size)
	if entry.size == 0 || end > uint64(len(data)) {
		return ImageInfo{}, fmt.Errorf("ico: entry %d out of bounds", best)
	}
	payload := data[entry.offset:end]

	if bytes.HasPrefix(payload, pngSignature) {
		info, err := decodeRaster(payload)
		if err != nil {
			return ImageInfo{}, fmt.Errorf("ico: embedded png: %w", err)
		}
		info.Format = "ico"
		return info, nil
	}

	return decodeDIB(payload)
}

func larger(a, b icoEntry) bool {
	if pa, pb := a.width*a.height, b.width*b.height; pa != pb {
		return pa > pb
	}
	return a.bitCount > b.bitCount
}

// decodeDIB prefixes a BMP file header to an icon DIB and decodes it with
// the BMP decoder. The stored height is halved to drop the AND mask.
func decodeDIB(dib []byte) (ImageInfo, error) {
	if len(dib) < dibInfoLen {
		return ImageInfo{}, errors.New("ico: short dib header")
	}
	infoLen := binary.LittleEndian.Uint32(dib[0:4])
	if infoLen < dibInfoLen || int(infoLen) > len(dib) {
		return ImageInfo{}, fmt.Errorf("ico: unsupported dib header size %d", infoLen)
	}
	bitCount := binary.LittleEndian.Uint16(dib[14:16])
	colorsUsed := binary.LittleEndian.Uint32(dib[32:36])

	paletteLen := uint32(0)
	if bitCount <= 8 {
		n := colorsUsed
		if n == 0 {
			n = 1 << bitCount
		}
		paletteLen = n * 4
	}

	buf := make([]byte, bmpFileHdrLen+len(dib))
	buf[0], buf[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(buf[2:6], uint32(len(buf)))
	binary.LittleEndian.PutUint32(buf[10:14], bmpFileHdrLen+infoLen+paletteLen)
	copy(buf[bmpFileHdrLen:], dib)

	hdr := buf[bmpFileHdrLen:]
	height := int32(binary.LittleEndian.Uint32(hdr[dibHeightField : dibHeightField+4]))
	binary.LittleEndian.PutUint32(hdr[dibHeightField:dibHeightField+4], uint32(height/2))

	img, err := bmp.Decode(bytes.NewReader(buf))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("ico: dib: %w", err)
	}

	b := img.Bounds()
	channels := channelsOf(img)
	// 32-bit icon DIBs always carry alpha, which the BMP decoder ignores
	// for 40-byte headers.
	if bitCount == 32 {
		channels = 4
	}

	return ImageInfo{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: channels,
		Format:   "ico",
		Decoder:  "go",
	}, nil
}
