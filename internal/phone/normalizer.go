package phone

import (
	"regexp"
	"strings"
)

// NumberType classifies what kind of line a number belongs to.
type NumberType string

const (
	TypeMobile   NumberType = "mobile"
	TypeLandline NumberType = "landline"
	TypeUnknown  NumberType = "unknown"
)

// Result is the outcome of a normalization attempt. It is always fully
// populated; callers never get an error from Normalize.
type Result struct {
	// Normalized is the +<country><subscriber> form, or the best-effort
	// cleaned string when Valid is false.
	Normalized string
	Original   string
	Country    string
	Valid      bool
	Type       NumberType

	// Variants are the alternative renderings CRM phone fields may hold,
	// used as search candidates (international, digits-only, local, bare).
	Variants []string
}

type pattern struct {
	re  *regexp.Regexp
	typ NumberType
}

type country struct {
	name string
	code string
	pats []pattern

	// localVariants controls whether the 0-prefixed local form and bare
	// subscriber number are emitted as search variants.
	localVariants bool
}

// countries is ordered: Kenya is the primary market and is always probed
// first unless the caller pinned a different country.
var countries = []country{
	{
		name: "kenya",
		code: "254",
		pats: []pattern{
			{re: regexp.MustCompile(`^(\+?254|0)?([17]\d{8})$`), typ: TypeMobile},
			{re: regexp.MustCompile(`^(\+?254|0)?([2-6]\d{7,8})$`), typ: TypeLandline},
		},
		localVariants: true,
	},
	{
		name: "us",
		code: "1",
		pats: []pattern{
			{re: regexp.MustCompile(`^(\+?1)?([2-9]\d{9})$`), typ: TypeUnknown},
		},
	},
	{
		name: "uk",
		code: "44",
		pats: []pattern{
			{re: regexp.MustCompile(`^(\+?44|0)?([1-9]\d{8,9})$`), typ: TypeUnknown},
		},
	},
}

// Normalizer maps raw phone strings to a canonical international form.
// It is a pure component: no I/O, safe for concurrent use.
type Normalizer struct {
	defaultCountry string
}

func NewNormalizer(defaultCountry string) *Normalizer {
	dc := strings.ToLower(strings.TrimSpace(defaultCountry))
	if dc == "" {
		dc = "kenya"
	}
	return &Normalizer{defaultCountry: dc}
}

// Normalize attempts normalization using the default country order.
func (n *Normalizer) Normalize(raw string) Result {
	return n.NormalizeCountry(raw, "")
}

// NormalizeCountry attempts normalization trying countryHint first.
// Garbage and empty input yield Valid=false, never a panic.
func (n *Normalizer) NormalizeCountry(raw, countryHint string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Type: TypeUnknown, Variants: []string{}}
	}

	cleaned := clean(raw)
	if cleaned == "" || cleaned == "+" {
		return invalidResult(raw, cleaned)
	}

	for _, c := range tryOrder(countryHint, n.defaultCountry) {
		if r, ok := match(cleaned, raw, c); ok {
			return r
		}
	}
	return invalidResult(raw, cleaned)
}

// SearchVariants returns every rendering worth probing in the CRM.
// Invalid numbers still return the raw and cleaned forms; CRM fields are
// free text and may match anyway.
func (n *Normalizer) SearchVariants(raw string) []string {
	r := n.Normalize(raw)
	if r.Valid {
		return r.Variants
	}
	cleaned := clean(raw)
	if cleaned != "" && cleaned != raw {
		return []string{raw, cleaned}
	}
	return []string{raw}
}

func tryOrder(hint, def string) []country {
	hint = strings.ToLower(strings.TrimSpace(hint))

	names := make([]string, 0, len(countries)+2)
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	if hint != "" {
		add(hint)
	} else {
		// Kenya leads when the caller expressed no preference.
		add("kenya")
	}
	add(def)
	for _, c := range countries {
		add(c.name)
	}

	out := make([]country, 0, len(names))
	for _, name := range names {
		for _, c := range countries {
			if c.name == name {
				out = append(out, c)
			}
		}
	}
	return out
}

func match(cleaned, original string, c country) (Result, bool) {
	for _, p := range c.pats {
		m := p.re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		subscriber := m[2]
		normalized := "+" + c.code + subscriber
		return Result{
			Normalized: normalized,
			Original:   original,
			Country:    c.name,
			Valid:      true,
			Type:       p.typ,
			Variants:   variants(c, subscriber),
		}, true
	}
	return Result{}, false
}

func variants(c country, subscriber string) []string {
	intl := "+" + c.code + subscriber
	if !c.localVariants {
		return []string{intl, subscriber}
	}
	return []string{
		intl,                 // +254712345678
		c.code + subscriber,  // 254712345678
		"0" + subscriber,     // 0712345678
		subscriber,           // 712345678
	}
}

var nonPhoneRunes = regexp.MustCompile(`[^\d+]`)

// clean strips everything except digits, keeping a single leading +.
func clean(raw string) string {
	s := nonPhoneRunes.ReplaceAllString(strings.TrimSpace(raw), "")
	if !strings.Contains(s, "+") {
		return s
	}
	return "+" + strings.ReplaceAll(s, "+", "")
}

func invalidResult(original, cleaned string) Result {
	norm := cleaned
	if norm == "" {
		norm = original
	}
	return Result{
		Normalized: norm,
		Original:   original,
		Country:    "unknown",
		Valid:      false,
		Type:       TypeUnknown,
		Variants:   []string{original},
	}
}
