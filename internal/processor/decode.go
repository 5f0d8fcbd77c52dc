package processor

import (
	"bytes"
	"errors"
	"fmt"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/tiff" // TIFF format support
	_ "golang.org/x/image/webp" // WebP format support

	"datalint/internal/imagetypes"
	"datalint/internal/metrics"
)

// ErrUndecodable is returned when no decoder accepts the data.
var ErrUndecodable = errors.New("undecodable image")

// ImageInfo is what a successful decode yields.
type ImageInfo struct {
	Width    int
	Height   int
	Channels int
	// Format is the format the decoder recognised, which may differ from
	// the file extension.
	Format string
	// Decoder is "go" or "vips".
	Decoder string
}

// Decoder turns file bytes into ImageInfo.
type Decoder struct {
	// UseVips retries data the Go decoders reject through libvips.
	UseVips bool
}

// Decode fully decodes data; a truncated or corrupt stream is an error even
// if its header is intact. ext selects the SVG and ICO decoders, everything
// else is sniffed from content.
func (d Decoder) Decode(data []byte, ext string) (ImageInfo, error) {
	format := imagetypes.FormatOf(ext)

	info, err := decodeNative(data, format)
	if err == nil {
		metrics.DecodeByFormat.WithLabelValues(info.Format, "go").Inc()
		return info, nil
	}

	if d.UseVips && IsVipsAvailable() {
		vinfo, verr := decodeVips(data)
		if verr == nil {
			metrics.DecodeByFormat.WithLabelValues(string(format), "vips").Inc()
			return vinfo, nil
		}
		return ImageInfo{}, fmt.Errorf("%w: %v (vips: %v)", ErrUndecodable, err, verr)
	}

	return ImageInfo{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
}

func decodeNative(data []byte, format imagetypes.Format) (ImageInfo, error) {
	switch format {
	case imagetypes.FormatSVG:
		return decodeSVG(data)
	case imagetypes.FormatICO:
		// Some .ico files are plain PNGs; fall through to sniffing for those.
		if !bytes.HasPrefix(data, pngSignature) {
			return decodeICO(data)
		}
	}
	return decodeRaster(data)
}

// decodeRaster decodes any registered raster format by content sniffing.
func decodeRaster(data []byte) (ImageInfo, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return ImageInfo{}, fmt.Errorf("empty image bounds %v", b)
	}

	format := sniffFormat(data)
	channels := channelsOf(img)
	if format == "png" {
		channels = pngChannels(data, img)
	}

	return ImageInfo{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: channels,
		Format:   format,
		Decoder:  "go",
	}, nil
}

// sniffFormat names the container from magic bytes.
func sniffFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return "png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "gif"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "webp"
	default:
		return "unknown"
	}
}
