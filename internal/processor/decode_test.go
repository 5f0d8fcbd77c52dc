package processor

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestDecodeChannels(t *testing.T) {
	t.Parallel()

	nrgba := image.NewNRGBA(image.Rect(0, 0, 6, 4))
	for i := range nrgba.Pix {
		nrgba.Pix[i] = 0x80
	}

	tests := []struct {
		name         string
		data         func(t *testing.T) []byte
		ext          string
		wantW, wantH int
		wantChannels int
		wantFormat   string
	}{
		{
			name: "opaque RGBA PNG is truecolour",
			data: func(t *testing.T) []byte { return encodePNG(t, solidRGBA(8, 6, 255)) },
			ext:  "png",
			wantW: 8, wantH: 6, wantChannels: 3, wantFormat: "png",
		},
		{
			name: "translucent PNG keeps alpha",
			data: func(t *testing.T) []byte { return encodePNG(t, nrgba) },
			ext:  "png",
			wantW: 6, wantH: 4, wantChannels: 4, wantFormat: "png",
		},
		{
			name: "grey PNG",
			data: func(t *testing.T) []byte { return encodePNG(t, grayImage(5, 5)) },
			ext:  "png",
			wantW: 5, wantH: 5, wantChannels: 1, wantFormat: "png",
		},
		{
			name: "indexed PNG with opaque palette",
			data: func(t *testing.T) []byte { return encodePNG(t, palettedImage(4, 4, opaquePalette())) },
			ext:  "png",
			wantW: 4, wantH: 4, wantChannels: 3, wantFormat: "png",
		},
		{
			name: "indexed PNG with transparent entry",
			data: func(t *testing.T) []byte { return encodePNG(t, palettedImage(4, 4, translucentPalette())) },
			ext:  "png",
			wantW: 4, wantH: 4, wantChannels: 4, wantFormat: "png",
		},
		{
			name: "colour JPEG",
			data: func(t *testing.T) []byte { return encodeJPEG(t, solidRGBA(16, 9, 255)) },
			ext:  "jpg",
			wantW: 16, wantH: 9, wantChannels: 3, wantFormat: "jpeg",
		},
		{
			name: "grey JPEG",
			data: func(t *testing.T) []byte { return encodeJPEG(t, grayImage(7, 3)) },
			ext:  "jpeg",
			wantW: 7, wantH: 3, wantChannels: 1, wantFormat: "jpeg",
		},
		{
			name: "GIF",
			data: func(t *testing.T) []byte { return encodeGIF(t, palettedImage(10, 2, opaquePalette())) },
			ext:  "gif",
			wantW: 10, wantH: 2, wantChannels: 3, wantFormat: "gif",
		},
		{
			name: "24-bit BMP",
			data: func(t *testing.T) []byte { return encodeBMP(t, solidRGBA(3, 3, 255)) },
			ext:  "bmp",
			wantW: 3, wantH: 3, wantChannels: 3, wantFormat: "bmp",
		},
		{
			name: "grey TIFF",
			data: func(t *testing.T) []byte { return encodeTIFF(t, grayImage(4, 2)) },
			ext:  "tif",
			wantW: 4, wantH: 2, wantChannels: 1, wantFormat: "tiff",
		},
		{
			name: "PNG behind a .jpg extension is sniffed",
			data: func(t *testing.T) []byte { return encodePNG(t, solidRGBA(2, 2, 255)) },
			ext:  "jpg",
			wantW: 2, wantH: 2, wantChannels: 3, wantFormat: "png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info, err := Decoder{}.Decode(tt.data(t), tt.ext)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if info.Width != tt.wantW || info.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", info.Width, info.Height, tt.wantW, tt.wantH)
			}
			if info.Channels != tt.wantChannels {
				t.Errorf("channels = %d, want %d", info.Channels, tt.wantChannels)
			}
			if info.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", info.Format, tt.wantFormat)
			}
			if info.Decoder != "go" {
				t.Errorf("decoder = %q, want go", info.Decoder)
			}
		})
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	t.Parallel()

	full := encodePNG(t, solidRGBA(32, 32, 255))

	tests := []struct {
		name string
		data []byte
		ext  string
	}{
		{"text with jpg extension", []byte("definitely not an image"), "jpg"},
		{"empty file", nil, "png"},
		{"truncated PNG", full[:len(full)/2], "png"},
		{"PNG header only", full[:33], "png"},
		{"garbage ico", []byte{0, 0, 1, 0, 1, 0, 9, 9}, "ico"},
		{"svg without size", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), "svg"},
		{"text with svg extension", []byte("plain text"), "svg"},
		{"svg view box too wide", []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1e20 10"></svg>`), "svg"},
		{"svg width attribute too large", []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1e20" height="10"></svg>`), "svg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(tt.data, tt.ext)
			if !errors.Is(err, ErrUndecodable) {
				t.Fatalf("Decode() error = %v, want ErrUndecodable", err)
			}
		})
	}
}

func TestDecodeVipsFallbackRequiresInit(t *testing.T) {
	t.Parallel()

	if IsVipsAvailable() {
		t.Skip("libvips initialised by another test")
	}
	_, err := Decoder{UseVips: true}.Decode([]byte("not an image"), "png")
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("Decode() error = %v, want ErrUndecodable", err)
	}
}

func TestDecodeSVG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		doc          string
		wantW, wantH int
	}{
		{
			name:  "view box",
			doc:   `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 120 80"><rect width="10" height="10"/></svg>`,
			wantW: 120, wantH: 80,
		},
		{
			name:  "width and height attributes",
			doc:   `<svg xmlns="http://www.w3.org/2000/svg" width="64px" height="32"><circle cx="5" cy="5" r="4"/></svg>`,
			wantW: 64, wantH: 32,
		},
		{
			name:  "fractional view box rounds up",
			doc:   `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.2 4.5"></svg>`,
			wantW: 11, wantH: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info, err := Decoder{}.Decode([]byte(tt.doc), "svg")
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if info.Width != tt.wantW || info.Height != tt.wantH || info.Channels != 4 {
				t.Errorf("got %dx%dx%d, want %dx%dx4", info.Width, info.Height, info.Channels, tt.wantW, tt.wantH)
			}
			if info.Format != "svg" {
				t.Errorf("format = %q, want svg", info.Format)
			}
		})
	}
}

func TestChannelsOf(t *testing.T) {
	t.Parallel()

	rect := image.Rect(0, 0, 2, 2)
	translucent := image.NewRGBA(rect)
	opaque := solidRGBA(2, 2, 255)

	tests := []struct {
		name string
		img  image.Image
		want int
	}{
		{"gray", image.NewGray(rect), 1},
		{"gray16", image.NewGray16(rect), 1},
		{"ycbcr", image.NewYCbCr(rect, image.YCbCrSubsampleRatio420), 3},
		{"cmyk", image.NewCMYK(rect), 3},
		{"nycbcra", image.NewNYCbCrA(rect, image.YCbCrSubsampleRatio444), 4},
		{"nrgba", image.NewNRGBA(rect), 4},
		{"nrgba64", image.NewNRGBA64(rect), 4},
		{"opaque rgba", opaque, 3},
		{"transparent rgba", translucent, 4},
		{"alpha mask", image.NewAlpha(rect), 4},
		{"opaque palette", palettedImage(2, 2, opaquePalette()), 3},
		{"translucent palette", palettedImage(2, 2, translucentPalette()), 4},
		{"uniform colour falls back to rgb", image.NewUniform(color.RGBA{1, 2, 3, 255}), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := channelsOf(tt.img); got != tt.want {
				t.Errorf("channelsOf(%s) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestPNGColourType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		img  image.Image
		want byte
	}{
		{"grey", grayImage(2, 2), 0},
		{"truecolour", solidRGBA(2, 2, 255), 2},
		{"indexed", palettedImage(2, 2, opaquePalette()), 3},
		{"truecolour alpha", image.NewNRGBA(image.Rect(0, 0, 2, 2)), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := pngColourType(encodePNG(t, tt.img))
			if !ok {
				t.Fatal("pngColourType() did not recognise PNG")
			}
			if got != tt.want {
				t.Errorf("colour type = %d, want %d", got, tt.want)
			}
		})
	}

	if _, ok := pngColourType([]byte("GIF89a")); ok {
		t.Error("pngColourType() accepted non-PNG data")
	}
}

func TestBandsToChannels(t *testing.T) {
	t.Parallel()

	for bands, want := range map[int]int{1: 1, 2: 1, 3: 3, 4: 4, 5: 3} {
		if got := bandsToChannels(bands); got != want {
			t.Errorf("bandsToChannels(%d) = %d, want %d", bands, got, want)
		}
	}
}
