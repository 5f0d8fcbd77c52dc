package processor

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Fixture builders. Every image is generated in-test so the suite carries no
// binary testdata.

func solidRGBA(w, h int, a uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: a})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("gif encode: %v", err)
	}
	return buf.Bytes()
}

func encodeBMP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("bmp encode: %v", err)
	}
	return buf.Bytes()
}

func encodeTIFF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("tiff encode: %v", err)
	}
	return buf.Bytes()
}

func grayImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	return img
}

func palettedImage(w, h int, pal color.Palette) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % len(pal))
	}
	return img
}

func opaquePalette() color.Palette {
	return color.Palette(palette.Plan9[:16])
}

func translucentPalette() color.Palette {
	p := append(color.Palette{}, palette.Plan9[:15]...)
	return append(p, color.NRGBA{R: 255, A: 0})
}

// icoWithPNG wraps a PNG stream in a single-entry icon directory.
func icoWithPNG(pngData []byte, w, h int) []byte {
	return icoFile([]icoFixture{{w: w, h: h, bpp: 32, payload: pngData}})
}

type icoFixture struct {
	w, h, bpp int
	payload   []byte
}

func icoFile(entries []icoFixture) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, uint16(len(entries))})

	offset := icoHeaderLen + icoEntryLen*len(entries)
	for _, e := range entries {
		dirW, dirH := byte(e.w), byte(e.h)
		if e.w >= 256 {
			dirW = 0
		}
		if e.h >= 256 {
			dirH = 0
		}
		buf.Write([]byte{dirW, dirH, 0, 0})
		_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
		_ = binary.Write(&buf, binary.LittleEndian, uint16(e.bpp))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(e.payload)))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(offset))
		offset += len(e.payload)
	}
	for _, e := range entries {
		buf.Write(e.payload)
	}
	return buf.Bytes()
}

// dib32 builds a 32-bit BGRA icon DIB with its AND mask.
func dib32(w, h int) []byte {
	var buf bytes.Buffer
	hdr := struct {
		Size          uint32
		Width, Height int32
		Planes, Bits  uint16
		Compression   uint32
		SizeImage     uint32
		XPPM, YPPM    int32
		ClrUsed       uint32
		ClrImportant  uint32
	}{Size: dibInfoLen, Width: int32(w), Height: int32(2 * h), Planes: 1, Bits: 32}
	_ = binary.Write(&buf, binary.LittleEndian, hdr)

	for i := 0; i < w*h; i++ {
		buf.Write([]byte{0x20, 0x40, 0x80, 0xff})
	}
	maskRow := ((w + 31) / 32) * 4
	buf.Write(make([]byte, maskRow*h))
	return buf.Bytes()
}

func writeFixture(t *testing.T, dir, rel string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
