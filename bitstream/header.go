// Package bitstream reads WebP container headers without decoding pixel data.
package bitstream

import (
	"bytes"
	"encoding/binary"

	apperrors "github.com/Skryldev/webpio/errors"
)

// Format is the compression variant of a still image.
type Format int

const (
	FormatUndefined Format = iota // animation or mixed
	FormatLossy
	FormatLossless
)

func (f Format) String() string {
	switch f {
	case FormatLossy:
		return "lossy"
	case FormatLossless:
		return "lossless"
	}
	return "undefined"
}

// Features are the properties recoverable from the headers alone.
type Features struct {
	Width        int
	Height       int
	HasAlpha     bool
	HasAnimation bool
	Format       Format
}

const (
	tagSize         = 4
	chunkHeaderSize = 8
	riffHeaderSize  = 12
	vp8xChunkSize   = 10
	vp8FrameHeader  = 10
	vp8lFrameHeader = 5
	vp8lMagic       = 0x2f
	maxChunkPayload = ^uint32(0) - chunkHeaderSize - 1

	alphaFlag     = 0x10
	animationFlag = 0x02
)

var (
	tagRIFF = []byte("RIFF")
	tagWEBP = []byte("WEBP")
	tagVP8X = []byte("VP8X")
	tagVP8  = []byte("VP8 ")
	tagVP8L = []byte("VP8L")
	tagALPH = []byte("ALPH")
)

// IsWebP reports whether data starts with a RIFF/WEBP container header.
func IsWebP(data []byte) bool {
	return len(data) >= riffHeaderSize &&
		bytes.Equal(data[:tagSize], tagRIFF) &&
		bytes.Equal(data[8:riffHeaderSize], tagWEBP)
}

// ParseFeatures walks the RIFF, VP8X, optional and VP8/VP8L headers of data.
// Raw VP8 and VP8L streams without a container are accepted too.
func ParseFeatures(data []byte) (Features, error) {
	p := parser{data: data}
	return p.parse()
}

type parser struct {
	data      []byte
	riffSize  uint32
	foundRIFF bool
	foundVP8X bool
}

func fail(status apperrors.Status) error {
	return apperrors.New(status, "bitstream.features", nil)
}

func (p *parser) parse() (Features, error) {
	var f Features
	if len(p.data) < riffHeaderSize {
		return f, fail(apperrors.StatusNotEnoughData)
	}
	if err := p.skipRIFF(); err != nil {
		return f, err
	}

	canvasW, canvasH, flags, err := p.skipVP8X()
	if err != nil {
		return f, err
	}
	if !p.foundRIFF && p.foundVP8X {
		return f, fail(apperrors.StatusBitstreamError)
	}
	f.HasAlpha = flags&alphaFlag != 0
	f.HasAnimation = flags&animationFlag != 0
	f.Width, f.Height = canvasW, canvasH
	if p.foundVP8X && f.HasAnimation {
		return f, nil
	}

	alphaChunk := false
	status := p.body(&f, &alphaChunk)
	if status == apperrors.StatusOK ||
		(status == apperrors.StatusNotEnoughData && p.foundVP8X) {
		if alphaChunk {
			f.HasAlpha = true
		}
		return f, nil
	}
	return Features{}, fail(status)
}

// body parses everything after VP8X.  Truncation is reported as a status so
// the caller can still answer from the canvas header.
func (p *parser) body(f *Features, alphaChunk *bool) apperrors.Status {
	if len(p.data) < tagSize {
		return apperrors.StatusNotEnoughData
	}
	if (p.foundRIFF && p.foundVP8X) ||
		(!p.foundRIFF && !p.foundVP8X && bytes.Equal(p.data[:tagSize], tagALPH)) {
		if s := p.skipOptionalChunks(alphaChunk); s != apperrors.StatusOK {
			return s
		}
	}

	lossless, chunkSize, s := p.skipVP8Header()
	if s != apperrors.StatusOK {
		return s
	}
	if chunkSize > maxChunkPayload {
		return apperrors.StatusBitstreamError
	}

	var w, h int
	if !lossless {
		if len(p.data) < vp8FrameHeader {
			return apperrors.StatusNotEnoughData
		}
		var ok bool
		if w, h, ok = vp8Info(p.data, chunkSize); !ok {
			return apperrors.StatusBitstreamError
		}
		f.Format = FormatLossy
	} else {
		if len(p.data) < vp8lFrameHeader {
			return apperrors.StatusNotEnoughData
		}
		var ok, alpha bool
		if w, h, alpha, ok = vp8lInfo(p.data); !ok {
			return apperrors.StatusBitstreamError
		}
		f.HasAlpha = alpha
		f.Format = FormatLossless
	}
	if p.foundVP8X && (f.Width != w || f.Height != h) {
		return apperrors.StatusBitstreamError
	}
	f.Width, f.Height = w, h
	return apperrors.StatusOK
}

func (p *parser) skipRIFF() error {
	if !bytes.Equal(p.data[:tagSize], tagRIFF) {
		return nil
	}
	if !bytes.Equal(p.data[8:riffHeaderSize], tagWEBP) {
		return fail(apperrors.StatusBitstreamError)
	}
	size := binary.LittleEndian.Uint32(p.data[tagSize:])
	if size < tagSize+chunkHeaderSize || size > maxChunkPayload {
		return fail(apperrors.StatusBitstreamError)
	}
	p.riffSize = size
	p.foundRIFF = true
	p.data = p.data[riffHeaderSize:]
	return nil
}

func (p *parser) skipVP8X() (w, h int, flags byte, err error) {
	if len(p.data) < chunkHeaderSize {
		return 0, 0, 0, fail(apperrors.StatusNotEnoughData)
	}
	if !bytes.Equal(p.data[:tagSize], tagVP8X) {
		return 0, 0, 0, nil
	}
	if binary.LittleEndian.Uint32(p.data[tagSize:]) != vp8xChunkSize {
		return 0, 0, 0, fail(apperrors.StatusBitstreamError)
	}
	if len(p.data) < chunkHeaderSize+vp8xChunkSize {
		return 0, 0, 0, fail(apperrors.StatusNotEnoughData)
	}
	payload := p.data[chunkHeaderSize:]
	flags = payload[0]
	w = 1 + int(le24(payload[4:]))
	h = 1 + int(le24(payload[7:]))
	if uint64(w)*uint64(h) >= 1<<32 {
		return 0, 0, 0, fail(apperrors.StatusBitstreamError)
	}
	p.foundVP8X = true
	p.data = p.data[chunkHeaderSize+vp8xChunkSize:]
	return w, h, flags, nil
}

func (p *parser) skipOptionalChunks(alphaChunk *bool) apperrors.Status {
	total := uint64(tagSize + chunkHeaderSize + vp8xChunkSize)
	for {
		if len(p.data) < chunkHeaderSize {
			return apperrors.StatusNotEnoughData
		}
		tag := p.data[:tagSize]
		if bytes.Equal(tag, tagVP8) || bytes.Equal(tag, tagVP8L) {
			return apperrors.StatusOK
		}
		size := binary.LittleEndian.Uint32(p.data[tagSize:])
		if size > maxChunkPayload {
			return apperrors.StatusBitstreamError
		}
		disk := (uint64(chunkHeaderSize) + uint64(size) + 1) &^ 1
		total += disk
		if p.riffSize > 0 && total > uint64(p.riffSize) {
			return apperrors.StatusBitstreamError
		}
		if bytes.Equal(tag, tagALPH) {
			*alphaChunk = true
		}
		if uint64(len(p.data)) < disk {
			return apperrors.StatusNotEnoughData
		}
		p.data = p.data[disk:]
	}
}

func (p *parser) skipVP8Header() (lossless bool, chunkSize uint32, s apperrors.Status) {
	if p.foundRIFF && len(p.data) < chunkHeaderSize {
		return false, 0, apperrors.StatusNotEnoughData
	}
	if len(p.data) >= chunkHeaderSize {
		isVP8 := bytes.Equal(p.data[:tagSize], tagVP8)
		isVP8L := bytes.Equal(p.data[:tagSize], tagVP8L)
		if isVP8 || isVP8L {
			size := binary.LittleEndian.Uint32(p.data[tagSize:])
			const minSize = tagSize + chunkHeaderSize
			if p.riffSize >= minSize && size > p.riffSize-minSize {
				return false, 0, apperrors.StatusBitstreamError
			}
			p.data = p.data[chunkHeaderSize:]
			return isVP8L, size, apperrors.StatusOK
		}
	}
	// Raw VP8 or VP8L data without a chunk header.
	lossless = len(p.data) >= vp8lFrameHeader && p.data[0] == vp8lMagic && p.data[4]>>5 == 0
	return lossless, uint32(len(p.data)), apperrors.StatusOK
}

// vp8Info validates a key frame header and returns its dimensions.
func vp8Info(d []byte, chunkSize uint32) (w, h int, ok bool) {
	if d[3] != 0x9d || d[4] != 0x01 || d[5] != 0x2a {
		return 0, 0, false
	}
	bits := uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16
	keyFrame := bits&1 == 0
	profile := (bits >> 1) & 7
	show := (bits >> 4) & 1
	partitionLength := bits >> 5
	if !keyFrame || profile > 3 || show == 0 || partitionLength >= chunkSize {
		return 0, 0, false
	}
	w = int(binary.LittleEndian.Uint16(d[6:]) & 0x3fff)
	h = int(binary.LittleEndian.Uint16(d[8:]) & 0x3fff)
	if w == 0 || h == 0 {
		return 0, 0, false
	}
	return w, h, true
}

// vp8lInfo decodes the 14-bit width/height fields of a lossless header.
func vp8lInfo(d []byte) (w, h int, alpha, ok bool) {
	if d[0] != vp8lMagic {
		return 0, 0, false, false
	}
	bits := binary.LittleEndian.Uint32(d[1:])
	if bits>>29 != 0 {
		return 0, 0, false, false
	}
	w = int(bits&0x3fff) + 1
	h = int((bits>>14)&0x3fff) + 1
	alpha = (bits>>28)&1 != 0
	return w, h, alpha, true
}

func le24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}
