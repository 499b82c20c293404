package transcode

import "bytes"

// BOM identifies a byte order mark found at the start of a buffer.
type BOM int

const (
	BOMNone BOM = iota
	BOMUTF8
	BOMUTF16LE
	BOMUTF16BE
	BOMUTF32LE
	BOMUTF32BE
)

func (b BOM) String() string {
	switch b {
	case BOMNone:
		return "none"
	case BOMUTF8:
		return "UTF-8"
	case BOMUTF16LE:
		return "UTF-16LE"
	case BOMUTF16BE:
		return "UTF-16BE"
	case BOMUTF32LE:
		return "UTF-32LE"
	case BOMUTF32BE:
		return "UTF-32BE"
	default:
		return "none"
	}
}

// EncodingName returns the encoding label the mark implies, or "" for BOMNone.
func (b BOM) EncodingName() string {
	if b == BOMNone {
		return ""
	}
	return b.String()
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
)

// DetectBOM sniffs a byte order mark and returns it along with the remaining
// data. The UTF-32LE mark is checked before UTF-16LE, which it shadows.
func DetectBOM(data []byte) (BOM, []byte) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return BOMUTF8, data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF32LE):
		return BOMUTF32LE, data[len(bomUTF32LE):]
	case bytes.HasPrefix(data, bomUTF32BE):
		return BOMUTF32BE, data[len(bomUTF32BE):]
	case bytes.HasPrefix(data, bomUTF16LE):
		return BOMUTF16LE, data[len(bomUTF16LE):]
	case bytes.HasPrefix(data, bomUTF16BE):
		return BOMUTF16BE, data[len(bomUTF16BE):]
	}
	return BOMNone, data
}

// ConvertDetectingBOM strips a leading byte order mark and converts the rest
// using the encoding the mark implies. Input without a mark is assumed to be
// in the process locale encoding.
func (e *Engine) ConvertDetectingBOM(input []byte, toEncoding string) BytesResult {
	bom, rest := DetectBOM(input)
	fromEncoding := bom.EncodingName()
	if fromEncoding == "" {
		fromEncoding = LocaleEncoding()
	}
	return e.Convert(rest, fromEncoding, toEncoding)
}
