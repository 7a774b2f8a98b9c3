package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	"github.com/matst80/slask-catalog/pkg/types"
)

const specParamPrefix = "spec."

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// scalarParams holds the single valued parameters. Prices are kept as
// strings so a malformed number only drops that bound.
type scalarParams struct {
	Search   string `schema:"search"`
	MinPrice string `schema:"minPrice"`
	MaxPrice string `schema:"maxPrice"`
	Sort     string `schema:"sort"`
	Order    string `schema:"order"`
	Page     int    `schema:"page"`
	Size     int    `schema:"size"`
}

func decodeScalars(values url.Values) scalarParams {
	var s scalarParams
	// conversion errors leave the field at its zero value
	_ = decoder.Decode(&s, values)
	return s
}

// Decode parses a url query string (with or without leading '?').
func Decode(raw string) Query {
	q, _ := DecodeWithIssues(raw)
	return q
}

func DecodeWithIssues(raw string) (Query, []*types.ValidationError) {
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return DecodeValues(values)
}

// DecodeValues never fails: unknown keys and malformed tokens are dropped
// and repeated keys are merged.
func DecodeValues(values url.Values) (Query, []*types.ValidationError) {
	scalars := decodeScalars(values)
	var issues []*types.ValidationError
	p := Params{
		Search:        scalars.Search,
		Categories:    listValues(values[string(Categories)]),
		SubCategories: listValues(values[string(SubCategories)]),
		Brands:        listValues(values[string(Brands)]),
		Collections:   listValues(values[string(Collections)]),
		StockStatus:   listValues(values[string(StockStatus)]),
		MinPrice:      parseBound("minPrice", scalars.MinPrice, &issues),
		MaxPrice:      parseBound("maxPrice", scalars.MaxPrice, &issues),
	}
	for key, raw := range values {
		specKey, ok := strings.CutPrefix(key, specParamPrefix)
		if !ok {
			continue
		}
		if p.Specifications == nil {
			p.Specifications = make(map[string][]string)
		}
		p.Specifications[specKey] = append(p.Specifications[specKey], listValues(raw)...)
	}
	q, buildIssues := p.Build()
	return q, append(issues, buildIssues...)
}

func parseBound(field, raw string, issues *[]*types.ValidationError) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*issues = append(*issues, &types.ValidationError{Field: field, Value: raw, Reason: "not a number"})
		return nil
	}
	return &v
}

func listValues(raw []string) []string {
	var ret []string
	for _, joined := range raw {
		for token := range strings.SplitSeq(joined, ",") {
			value, err := url.PathUnescape(token)
			if err != nil || strings.TrimSpace(value) == "" {
				continue
			}
			ret = append(ret, value)
		}
	}
	return ret
}

var tokenEscaper = strings.NewReplacer("%", "%25", ",", "%2C")

func encodeList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = url.QueryEscape(tokenEscaper.Replace(v))
	}
	return strings.Join(parts, ",")
}

type queryBuilder struct {
	sb strings.Builder
}

func (b *queryBuilder) add(key, encodedValue string) {
	if b.sb.Len() > 0 {
		b.sb.WriteByte('&')
	}
	b.sb.WriteString(url.QueryEscape(key))
	b.sb.WriteByte('=')
	b.sb.WriteString(encodedValue)
}

// Encode renders the canonical query string: fixed dimensions first, then
// specifications ordered by key. Absent dimensions are omitted.
func Encode(q Query) string {
	var b queryBuilder
	encodeInto(&b, q)
	return b.sb.String()
}

func encodeInto(b *queryBuilder, q Query) {
	if q.search != "" {
		b.add(string(Search), url.QueryEscape(q.search))
	}
	for _, d := range []struct {
		dim Dimension
		set StringSet
	}{
		{Categories, q.categories},
		{SubCategories, q.subCategories},
		{Brands, q.brands},
		{Collections, q.collections},
	} {
		if d.set != nil {
			b.add(string(d.dim), encodeList(d.set))
		}
	}
	if q.minPrice != nil {
		b.add("minPrice", formatFloat(*q.minPrice))
	}
	if q.maxPrice != nil {
		b.add("maxPrice", formatFloat(*q.maxPrice))
	}
	if len(q.stockStatus) > 0 {
		statuses := make([]string, len(q.stockStatus))
		for i, st := range q.stockStatus {
			statuses[i] = string(st)
		}
		b.add(string(StockStatus), strings.Join(statuses, ","))
	}
	for _, key := range q.SpecificationKeys() {
		b.add(specParamPrefix+key, encodeList(q.specs[key]))
	}
}
