package contentline

import (
	"io"
	"mime/quotedprintable"
	"strings"

	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// EncodingParam names the legacy inline-encoding parameter.
const EncodingParam = "encoding"

var bareEncodings = map[string]string{
	"quoted-printable": "quoted-printable",
	"base64":           "b",
	"b":                "b",
	"7bit":             "7bit",
	"8bit":             "8bit",
}

// NormalizeLegacy rewrites 2.1/3.0 encoding quirks in place: bare encoding
// tokens recorded as TYPE move to ENCODING, quoted-printable values are
// decoded, and CHARSET is dropped. Base64 payloads are left for the
// property builder, which knows the media type. It is a no-op for 4.0.
func (cl *ContentLine) NormalizeLegacy() error {
	if !cl.Version.Legacy() {
		return nil
	}

	if types := cl.Params.Get(TypeParam); len(types) > 0 {
		kept := make([]string, 0, len(types))
		for _, token := range types {
			if encoding, ok := bareEncodings[strings.ToLower(token)]; ok {
				cl.Params.Set(EncodingParam, encoding)
				continue
			}
			kept = append(kept, token)
		}
		if len(kept) == 0 {
			cl.Params.Del(TypeParam)
		} else if len(kept) != len(types) {
			cl.Params.Set(TypeParam, kept...)
		}
	}
	cl.Params.Del("charset")

	encoding, ok := cl.Params.First(EncodingParam)
	if !ok {
		return nil
	}
	switch strings.ToLower(encoding) {
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(cl.Value)))
		if err != nil {
			return &vcarderr.Error{
				Kind:     vcarderr.ErrInvalidValue,
				Property: cl.Name,
				Reason:   "cannot decode quoted-printable value",
				Err:      err,
			}
		}
		cl.Value = string(decoded)
		cl.Params.Del(EncodingParam)
	case "base64":
		cl.Params.Set(EncodingParam, "b")
	case "7bit", "8bit":
		cl.Params.Del(EncodingParam)
	}
	return nil
}

// IsQuotedPrintableHead reports whether an unlexed physical line declares a
// quoted-printable value, in which case a trailing '=' is a soft line break
// joining the next physical line.
func IsQuotedPrintableHead(line string) bool {
	separator := indexOutsideQuotes(line, ':')
	if separator < 0 {
		return false
	}
	return strings.Contains(strings.ToUpper(line[:separator]), "QUOTED-PRINTABLE")
}
