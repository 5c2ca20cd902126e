package property

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// mediaTypePattern follows the RFC 4288 type-name "/" subtype-name grammar,
// with optional ";attribute=value" parameters.
var mediaTypePattern = regexp.MustCompile(
	`^[A-Za-z0-9][A-Za-z0-9!#$&.+\-^_]{0,126}/[A-Za-z0-9][A-Za-z0-9!#$&.+\-^_]{0,126}` +
		`(\s*;\s*[A-Za-z0-9!#$&.+\-^_]+=([A-Za-z0-9!#$&.+\-^_]+|"[^"]*"))*$`)

// legacyMediaTypes maps 2.1 and 3.0 TYPE tokens whose subtype differs from
// the token itself.
var legacyMediaTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"pgp":  "application/pgp-keys",
	"x509": "application/pkix-cert",
	"wave": "audio/wav",
	"wav":  "audio/wav",
}

const (
	valueParam      = "value"
	defaultDataType = "application/octet-stream"
)

// DataBuilder builds DataProperty values.
type DataBuilder struct {
	builderCore
	typeSet
	mediaType string
}

func newDataBuilder(spec *Specification) *DataBuilder {
	return &DataBuilder{builderCore: newBuilderCore(spec), typeSet: newTypeSet(spec)}
}

// SetMediaType sets the MEDIATYPE. The empty string clears it.
func (b *DataBuilder) SetMediaType(mediaType string) error {
	if mediaType != "" && !mediaTypePattern.MatchString(mediaType) {
		return vcarderr.MalformedParameter(b.spec.name, MediaTypeParam, mediaType, "not a valid media type")
	}
	b.mediaType = mediaType
	return nil
}

// SetValue sets the URL. Relative references and values containing
// whitespace are rejected.
func (b *DataBuilder) SetValue(value string) error {
	if err := validateURL(b.spec.name, value); err != nil {
		return err
	}
	b.setText(value)
	return nil
}

func (b *DataBuilder) SetParameter(key string, values ...string) error {
	switch strings.ToLower(key) {
	case contentline.TypeParam:
		return b.SetTypes(values...)
	case MediaTypeParam:
		if len(values) != 1 {
			return vcarderr.MalformedParameter(b.spec.name, MediaTypeParam,
				strings.Join(values, ","), "expected exactly one value")
		}
		return b.SetMediaType(values[0])
	}
	return b.setParameter(key, values)
}

func (b *DataBuilder) PushParameter(key, value string) error {
	switch strings.ToLower(key) {
	case contentline.TypeParam:
		return b.AddType(value)
	case MediaTypeParam:
		if b.mediaType != "" {
			return vcarderr.MalformedParameter(b.spec.name, MediaTypeParam, value, "MEDIATYPE may appear only once")
		}
		return b.SetMediaType(value)
	}
	return b.pushParameter(key, value)
}

// SetFromContentLine accepts 4.0 lines as well as the 2.1 and 3.0 forms:
// TYPE=JPEG style media tokens and inline ENCODING=b payloads, which are
// turned into a data: URL. Under 4.0 every TYPE token must be allowed.
func (b *DataBuilder) SetFromContentLine(cl *contentline.ContentLine) error {
	name := b.spec.name
	if err := b.beginLine(cl); err != nil {
		return err
	}

	var mediaTypes []string
	for _, value := range cl.Params.Get(contentline.TypeParam) {
		for _, token := range strings.Split(value, ",") {
			token = strings.TrimSpace(token)
			switch {
			case token == "":
			case b.owner.AllowsType(token) || !cl.Version.Legacy():
				if err := b.AddType(token); err != nil {
					return err
				}
			default:
				mediaTypes = append(mediaTypes, b.legacyMediaType(token))
			}
		}
	}
	consumed := []string{contentline.TypeParam, MediaTypeParam, contentline.EncodingParam}
	for _, param := range cl.NoValueParams {
		if b.owner.AllowsType(param) {
			b.tokens[strings.ToLower(param)] = struct{}{}
			consumed = append(consumed, param)
		}
	}
	if declared := cl.Params.Get(MediaTypeParam); len(declared) > 0 {
		if len(declared) > 1 {
			return vcarderr.MalformedParameter(name, MediaTypeParam, strings.Join(declared, ","), "more than one media type")
		}
		mediaTypes = append(mediaTypes, declared[0])
	}
	if len(mediaTypes) > 1 {
		return vcarderr.MalformedParameter(name, MediaTypeParam, strings.Join(mediaTypes, ","), "more than one media type")
	}
	if len(mediaTypes) == 1 {
		if err := b.SetMediaType(mediaTypes[0]); err != nil {
			return err
		}
	}

	value := cl.Value
	if encoding, ok := cl.Params.First(contentline.EncodingParam); ok {
		if !strings.EqualFold(encoding, "b") {
			return vcarderr.MalformedParameter(name, contentline.EncodingParam, encoding, "unsupported encoding")
		}
		mediaType := b.mediaType
		if mediaType == "" {
			mediaType = defaultDataType
		}
		value = "data:" + mediaType + ";base64," + strings.Join(strings.Fields(value), "")
		if kind, ok := cl.Params.First(valueParam); ok && strings.EqualFold(kind, "binary") {
			consumed = append(consumed, valueParam)
		}
	}

	if err := b.applyParameters(cl, consumed...); err != nil {
		return err
	}
	return b.SetValue(value)
}

// legacyMediaType turns a TYPE token such as GIF into a media type of the
// property's category.
func (b *DataBuilder) legacyMediaType(token string) string {
	lower := strings.ToLower(token)
	if strings.Contains(lower, "/") {
		return lower
	}
	if mediaType, ok := legacyMediaTypes[lower]; ok {
		return mediaType
	}
	return b.owner.MediaCategory() + "/" + lower
}

func (b *DataBuilder) Build() (Property, error) {
	if err := b.checkBuild(); err != nil {
		return nil, err
	}
	if err := validateURL(b.spec.name, b.value); err != nil {
		return nil, err
	}
	if b.mediaType != "" && !mediaTypePattern.MatchString(b.mediaType) {
		return nil, vcarderr.MalformedParameter(b.spec.name, MediaTypeParam, b.mediaType, "not a valid media type")
	}
	tokens, err := b.sorted()
	if err != nil {
		return nil, err
	}
	return &DataProperty{propertyCore: b.core(), typeTokens: tokens, mediaType: b.mediaType}, nil
}

func validateURL(property, value string) error {
	if strings.ContainsAny(value, " \t\r\n") {
		return vcarderr.InvalidValue(property, value, "URL must not contain whitespace")
	}
	u, err := url.Parse(value)
	if err != nil {
		return vcarderr.InvalidValue(property, value, err.Error())
	}
	if u.Scheme == "" {
		return vcarderr.InvalidValue(property, value, "URL must be absolute")
	}
	return nil
}
