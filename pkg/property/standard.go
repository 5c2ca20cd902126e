package property

// Field names of the structured properties.
const (
	FieldFamilyName      = "FamilyName"
	FieldGivenName       = "GivenName"
	FieldAdditionalNames = "AdditionalNames"
	FieldPrefixes        = "Prefixes"
	FieldSuffixes        = "Suffixes"

	FieldPOBox           = "POBox"
	FieldExtendedAddress = "ExtendedAddress"
	FieldStreetAddress   = "StreetAddress"
	FieldLocality        = "Locality"
	FieldRegion          = "Region"
	FieldPostalCode      = "PostalCode"
	FieldCountry         = "Country"

	FieldOrgName = "Name"
	FieldUnit1   = "Unit1"
	FieldUnit2   = "Unit2"

	FieldSex      = "Sex"
	FieldIdentity = "Identity"

	FieldSourceID = "SourceID"
	FieldURI      = "URI"
)

var workHome = []string{"work", "home"}

// StandardDefinitions returns the definitions of every RFC 6350 property
// plus the legacy AGENT, in the order cards serialize them.
func StandardDefinitions() []Definition {
	return []Definition{
		{Name: "source", Multiplicity: Multiple, Kind: KindData},
		{Name: "kind", Multiplicity: Single, Kind: KindSimple},
		{Name: "xml", Multiplicity: Multiple, Kind: KindSimple},
		{Name: "fn", Multiplicity: Single, Kind: KindTyped, AllowedTypes: workHome},
		{
			Name:         "n",
			Multiplicity: Single,
			Kind:         KindStructured,
			Fields: []string{
				FieldFamilyName, FieldGivenName, FieldAdditionalNames, FieldPrefixes, FieldSuffixes,
			},
		},
		{Name: "nickname", Multiplicity: CommaJoined, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "photo", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome, MediaCategory: "image"},
		{Name: "bday", Multiplicity: Single, Kind: KindSimple},
		{Name: "anniversary", Multiplicity: Single, Kind: KindSimple},
		{
			Name:         "gender",
			Multiplicity: Single,
			Kind:         KindStructured,
			Fields:       []string{FieldSex, FieldIdentity},
			FieldValues:  map[string][]string{FieldSex: {"M", "F", "O", "N", "U"}},
		},
		{
			Name:         "adr",
			Multiplicity: Multiple,
			Kind:         KindTypedStructured,
			AllowedTypes: []string{"work", "home", "dom", "intl", "postal", "parcel", "pref"},
			Fields: []string{
				FieldPOBox, FieldExtendedAddress, FieldStreetAddress, FieldLocality,
				FieldRegion, FieldPostalCode, FieldCountry,
			},
		},
		{
			Name:         "tel",
			Multiplicity: Multiple,
			Kind:         KindTyped,
			AllowedTypes: []string{
				"text", "voice", "fax", "cell", "video", "pager", "textphone", "work", "home",
				"main", "pref", "msg", "bbs", "modem", "car", "isdn", "pcs",
			},
		},
		{
			Name:         "email",
			Multiplicity: Multiple,
			Kind:         KindTyped,
			AllowedTypes: []string{"work", "home", "internet", "x400", "pref"},
		},
		{
			Name:         "impp",
			Multiplicity: Multiple,
			Kind:         KindTyped,
			AllowedTypes: []string{"work", "home", "personal", "business", "mobile", "pref"},
		},
		{Name: "language", Multiplicity: Multiple, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "tz", Multiplicity: Multiple, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "geo", Multiplicity: Multiple, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "title", Multiplicity: Multiple, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "role", Multiplicity: Multiple, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "logo", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome, MediaCategory: "image"},
		{
			Name:         "org",
			Multiplicity: Multiple,
			Kind:         KindTypedStructured,
			AllowedTypes: workHome,
			Fields:       []string{FieldOrgName, FieldUnit1, FieldUnit2},
		},
		{Name: "member", Multiplicity: Multiple, Kind: KindData},
		{
			Name:         "related",
			Multiplicity: Multiple,
			Kind:         KindTyped,
			AllowedTypes: []string{
				"contact", "acquaintance", "friend", "met", "co-worker", "colleague",
				"co-resident", "neighbor", "child", "parent", "sibling", "spouse", "kin",
				"muse", "crush", "date", "sweetheart", "me", "agent", "emergency",
			},
		},
		{Name: "categories", Multiplicity: CommaJoined, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "note", Multiplicity: Multiple, Kind: KindTyped, AllowedTypes: workHome},
		{Name: "prodid", Multiplicity: Single, Kind: KindSimple},
		{Name: "rev", Multiplicity: Single, Kind: KindSimple},
		{Name: "sound", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome, MediaCategory: "audio"},
		{Name: "uid", Multiplicity: Single, Kind: KindSimple},
		{
			Name:         "clientpidmap",
			Multiplicity: Multiple,
			Kind:         KindStructured,
			Fields:       []string{FieldSourceID, FieldURI},
		},
		{Name: "url", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome},
		{Name: "version", Multiplicity: Single, Kind: KindSimple},
		{Name: "key", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome, MediaCategory: "application"},
		{Name: "fburl", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome},
		{Name: "caladruri", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome},
		{Name: "caluri", Multiplicity: Multiple, Kind: KindData, AllowedTypes: workHome},
		{Name: "agent", Multiplicity: Multiple, Kind: KindSimple},
	}
}
