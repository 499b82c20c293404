package transcode

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// ErrUnknownEncoding is returned when an encoding name cannot be resolved to
// a codec.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Registry resolves textual encoding labels to codecs. Implementations must
// be safe for concurrent use.
type Registry interface {
	// Encoding returns the codec registered for name, or an error wrapping
	// ErrUnknownEncoding if the name cannot be resolved.
	Encoding(name string) (encoding.Encoding, error)
}

// unicodeEncodings maps normalized Unicode transformation format labels to
// their codecs. These take precedence over the IANA index, which leaves some
// UTF variants unsupported.
var unicodeEncodings = map[string]encoding.Encoding{
	"UTF-8":    unicode.UTF8,
	"UTF8":     unicode.UTF8,
	"UTF-16LE": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"UTF16LE":  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"UCS-2LE":  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"UTF-16BE": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"UTF16BE":  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"UCS-2BE":  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"UTF-16":   unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"UTF16":    unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"UTF-32LE": utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"UTF32LE":  utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"UCS-4LE":  utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"UTF-32BE": utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"UTF32BE":  utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"UCS-4BE":  utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	"UTF-32":   utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
	"UTF32":    utf32.UTF32(utf32.BigEndian, utf32.UseBOM),

	// Strict seven-bit ASCII has no codec in x/text; windows-1252 is the
	// conventional superset (it is what the WHATWG encoding index uses).
	"ASCII":    charmap.Windows1252,
	"US-ASCII": charmap.Windows1252,
}

// codePageNames maps Windows code page identifiers to encoding names.
var codePageNames = map[uint16]string{
	932:   "SHIFT_JIS",
	936:   "GBK",
	950:   "BIG5",
	1200:  "UTF-16LE",
	1201:  "UTF-16BE",
	1252:  "WINDOWS-1252",
	12000: "UTF-32LE",
	12001: "UTF-32BE",
	20127: "US-ASCII",
	28591: "ISO-8859-1",
	54936: "GB18030",
	65001: "UTF-8",
}

// EncodingNameByCodePage returns the encoding name for a Windows code page
// identifier. Unknown code pages map to a "CP####" label.
func EncodingNameByCodePage(codePage uint16) string {
	if name, ok := codePageNames[codePage]; ok {
		return name
	}
	return fmt.Sprintf("CP%d", codePage)
}

// CodePageByEncodingName returns the Windows code page identifier for an
// encoding name. The ok result is false for names without a known code page.
func CodePageByEncodingName(name string) (codePage uint16, ok bool) {
	normalized := normalizeEncodingName(name)
	for cp, n := range codePageNames {
		if n == normalized {
			return cp, true
		}
	}
	return 0, false
}

// LocaleEncoding returns the encoding name declared by the process locale,
// read from LC_ALL, LC_CTYPE or LANG in that order. It defaults to UTF-8 when
// no locale declares a charset.
func LocaleEncoding() string {
	for _, key := range [...]string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		// Locale values look like "en_US.UTF-8" or "C.UTF-8@variant".
		if i := strings.IndexByte(v, '.'); i >= 0 {
			charset := v[i+1:]
			if j := strings.IndexByte(charset, '@'); j >= 0 {
				charset = charset[:j]
			}
			if charset != "" {
				return charset
			}
		}
	}
	return "UTF-8"
}

func normalizeEncodingName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// defaultRegistry resolves names through, in order: the Unicode table, the
// code page table (CP#### labels and bare numbers), the IANA charset index,
// and finally the WHATWG HTML index for colloquial labels.
type defaultRegistry struct{}

// DefaultRegistry returns the registry used when Config.Registry is nil.
func DefaultRegistry() Registry {
	return defaultRegistry{}
}

func (defaultRegistry) Encoding(name string) (encoding.Encoding, error) {
	normalized := normalizeEncodingName(name)
	if normalized == "" {
		return nil, fmt.Errorf("empty name: %w", ErrUnknownEncoding)
	}

	if enc, ok := unicodeEncodings[normalized]; ok {
		return enc, nil
	}

	// CP936-style labels and bare code page numbers.
	if cpName, ok := resolveCodePageLabel(normalized); ok {
		if enc, ok := unicodeEncodings[cpName]; ok {
			return enc, nil
		}
		normalized = cpName
	}

	if enc, err := ianaindex.IANA.Encoding(normalized); err == nil && enc != nil {
		return enc, nil
	}
	// The HTML index accepts colloquial labels such as "latin1".
	if enc, err := htmlindex.Get(strings.ToLower(normalized)); err == nil && enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownEncoding)
}

func resolveCodePageLabel(normalized string) (string, bool) {
	digits := normalized
	if strings.HasPrefix(digits, "CP") {
		digits = digits[2:]
	}
	cp, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return "", false
	}
	name, ok := codePageNames[uint16(cp)]
	return name, ok
}
