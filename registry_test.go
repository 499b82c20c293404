package transcode

import (
	"errors"
	"testing"
)

func TestDefaultRegistryResolvesNames(t *testing.T) {
	registry := DefaultRegistry()

	names := []string{
		"UTF-8",
		"utf-8",
		" UTF-8 ",
		"UTF8",
		"UTF-16LE",
		"UTF-16BE",
		"UTF-16",
		"UTF-32LE",
		"UTF-32BE",
		"ASCII",
		"US-ASCII",
		"ISO-8859-1",
		"GBK",
		"GB18030",
		"BIG5",
		"CP936",
		"936",
		"CP65001",
		"latin1",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			enc, err := registry.Encoding(name)
			if err != nil {
				t.Fatalf("failed to resolve %q: %v", name, err)
			}
			if enc == nil {
				t.Fatalf("expected codec for %q, got nil", name)
			}
		})
	}
}

func TestDefaultRegistryRejectsUnknownNames(t *testing.T) {
	registry := DefaultRegistry()

	for _, name := range []string{"NOT_A_REAL_ENCODING", "", "CP1"} {
		t.Run(name, func(t *testing.T) {
			_, err := registry.Encoding(name)
			if !errors.Is(err, ErrUnknownEncoding) {
				t.Errorf("expected ErrUnknownEncoding for %q, got %v", name, err)
			}
		})
	}
}

func TestCodePageMapping(t *testing.T) {
	testCases := []struct {
		codePage uint16
		expected string
	}{
		{65001, "UTF-8"},
		{936, "GBK"},
		{950, "BIG5"},
		{932, "SHIFT_JIS"},
		{1200, "UTF-16LE"},
		{28591, "ISO-8859-1"},
		{1234, "CP1234"}, // Unknown code pages fall back to a CP#### label.
	}
	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := EncodingNameByCodePage(tc.codePage); got != tc.expected {
				t.Errorf("expected %q for code page %d, got %q", tc.expected, tc.codePage, got)
			}
		})
	}

	if cp, ok := CodePageByEncodingName("gbk"); !ok || cp != 936 {
		t.Errorf("expected code page 936 for GBK, got %d (ok=%v)", cp, ok)
	}
	if _, ok := CodePageByEncodingName("NOT_A_REAL_ENCODING"); ok {
		t.Error("expected no code page for an unknown name")
	}
}

func TestLocaleEncoding(t *testing.T) {
	testCases := []struct {
		name     string
		lcAll    string
		lcCtype  string
		lang     string
		expected string
	}{
		{"LC_ALL wins", "en_US.UTF-8", "ja_JP.EUC-JP", "C", "UTF-8"},
		{"LC_CTYPE fallback", "", "ja_JP.EUC-JP", "C", "EUC-JP"},
		{"LANG fallback", "", "", "zh_CN.GB18030", "GB18030"},
		{"Modifier stripped", "de_DE.ISO-8859-15@euro", "", "", "ISO-8859-15"},
		{"No charset defaults to UTF-8", "C", "POSIX", "", "UTF-8"},
		{"Unset defaults to UTF-8", "", "", "", "UTF-8"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LC_ALL", tc.lcAll)
			t.Setenv("LC_CTYPE", tc.lcCtype)
			t.Setenv("LANG", tc.lang)
			if got := LocaleEncoding(); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
