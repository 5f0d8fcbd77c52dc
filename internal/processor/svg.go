package processor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
)

// decodeSVG parses an SVG document and reports its view box size. The
// rasterised form is always RGBA.
func decodeSVG(data []byte) (ImageInfo, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, err
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		// No viewBox: fall back to the root width/height attributes.
		w, h = svgRootSize(data)
	}
	if w <= 0 || h <= 0 {
		return ImageInfo{}, errors.New("svg: zero-area view box")
	}
	if !svgDimensionOK(w) || !svgDimensionOK(h) {
		return ImageInfo{}, fmt.Errorf("svg: view box %gx%g out of range", w, h)
	}

	return ImageInfo{
		Width:    int(math.Ceil(w)),
		Height:   int(math.Ceil(h)),
		Channels: 4,
		Format:   "svg",
		Decoder:  "go",
	}, nil
}

// svgDimensionOK rejects sizes that would not survive the conversion to int.
func svgDimensionOK(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Ceil(v) <= math.MaxInt32
}

// svgRootSize reads absolute width/height from the <svg> element. Relative
// units (percentages, em) yield zero.
func svgRootSize(data []byte) (w, h float64) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "svg" {
			return 0, 0
		}
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "width":
				w = parseLength(attr.Value)
			case "height":
				h = parseLength(attr.Value)
			}
		}
		return w, h
	}
}

func parseLength(v string) float64 {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
