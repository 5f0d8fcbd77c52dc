package processor

import (
	"encoding/binary"
	"image"
	"image/color"
)

// channelsOf maps a decoded image's colour model to a channel count.
func channelsOf(img image.Image) int {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.YCbCr, *image.CMYK:
		return 3
	case *image.NYCbCrA:
		return 4
	case *image.Paletted:
		return paletteChannels(m.Palette)
	case *image.NRGBA, *image.NRGBA64:
		return 4
	case *image.RGBA:
		if m.Opaque() {
			return 3
		}
		return 4
	case *image.RGBA64:
		if m.Opaque() {
			return 3
		}
		return 4
	}

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return 4
	}
	if p, ok := img.ColorModel().(color.Palette); ok {
		return paletteChannels(p)
	}
	return 3
}

// paletteChannels is 4 when any palette entry is translucent.
func paletteChannels(p color.Palette) int {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return 4
		}
	}
	return 3
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// pngColourType reads the IHDR colour type byte. ok is false for data that
// is not a PNG stream.
func pngColourType(data []byte) (colourType byte, ok bool) {
	// signature(8) length(4) "IHDR"(4) width(4) height(4) depth(1) colour(1)
	if len(data) < 26 || string(data[:8]) != string(pngSignature) || string(data[12:16]) != "IHDR" {
		return 0, false
	}
	if binary.BigEndian.Uint32(data[8:12]) != 13 {
		return 0, false
	}
	return data[25], true
}

// pngChannels applies the IHDR colour type, which Go's decoder loses by
// widening truecolour and grey+alpha images to RGBA/NRGBA.
func pngChannels(data []byte, img image.Image) int {
	ct, ok := pngColourType(data)
	if !ok {
		return channelsOf(img)
	}
	switch ct {
	case 0, 4: // grey, grey+alpha
		return 1
	case 2: // truecolour
		return 3
	case 6: // truecolour+alpha
		return 4
	case 3: // indexed
		return channelsOf(img)
	default:
		return channelsOf(img)
	}
}
