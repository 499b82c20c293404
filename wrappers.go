package transcode

// Encoding labels accepted by the default registry.
const (
	EncodingUTF8    = "UTF-8"
	EncodingUTF16LE = "UTF-16LE"
	EncodingUTF16BE = "UTF-16BE"
	EncodingUTF32LE = "UTF-32LE"
	EncodingUTF32BE = "UTF-32BE"
)

// ConvertString is Convert for string payloads.
func (e *Engine) ConvertString(input string, fromEncoding, toEncoding string) Result[string] {
	r := e.Convert([]byte(input), fromEncoding, toEncoding)
	if !r.IsSuccess() {
		return Fail[string](r.ErrorCode())
	}
	return Ok(string(r.TakeBytes()))
}

// ToUTF8FromUTF16LE converts UTF-16LE bytes to UTF-8.
func (e *Engine) ToUTF8FromUTF16LE(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF16LE, EncodingUTF8)
}

// ToUTF16LEFromUTF8 converts UTF-8 bytes to UTF-16LE.
func (e *Engine) ToUTF16LEFromUTF8(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF8, EncodingUTF16LE)
}

// ToUTF8FromUTF16BE converts UTF-16BE bytes to UTF-8.
func (e *Engine) ToUTF8FromUTF16BE(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF16BE, EncodingUTF8)
}

// ToUTF16BEFromUTF8 converts UTF-8 bytes to UTF-16BE.
func (e *Engine) ToUTF16BEFromUTF8(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF8, EncodingUTF16BE)
}

// ToUTF32LEFromUTF8 converts UTF-8 bytes to UTF-32LE.
func (e *Engine) ToUTF32LEFromUTF8(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF8, EncodingUTF32LE)
}

// ToUTF8FromUTF32LE converts UTF-32LE bytes to UTF-8.
func (e *Engine) ToUTF8FromUTF32LE(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF32LE, EncodingUTF8)
}

// ToUTF8FromLocale converts bytes in the process locale encoding to UTF-8.
func (e *Engine) ToUTF8FromLocale(input []byte) BytesResult {
	return e.Convert(input, LocaleEncoding(), EncodingUTF8)
}

// ToLocaleFromUTF8 converts UTF-8 bytes to the process locale encoding.
func (e *Engine) ToLocaleFromUTF8(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF8, LocaleEncoding())
}

// ToUTF16LEFromLocale converts bytes in the process locale encoding to UTF-16LE.
func (e *Engine) ToUTF16LEFromLocale(input []byte) BytesResult {
	return e.Convert(input, LocaleEncoding(), EncodingUTF16LE)
}

// ToLocaleFromUTF16LE converts UTF-16LE bytes to the process locale encoding.
func (e *Engine) ToLocaleFromUTF16LE(input []byte) BytesResult {
	return e.Convert(input, EncodingUTF16LE, LocaleEncoding())
}
