package inventory

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const (
	defaultName     = "Unnamed Product"
	defaultCategory = "Uncategorized"
)

// rawProduct mirrors a product record as stored, including the legacy qty and img
// fields written by older clients.
type rawProduct struct {
	Name        string      `mapstructure:"name"`
	Category    string      `mapstructure:"category"`
	Description string      `mapstructure:"description"`
	Price       interface{} `mapstructure:"price"`
	Quantity    interface{} `mapstructure:"quantity"`
	Qty         interface{} `mapstructure:"qty"`
	Image       string      `mapstructure:"image"`
	Img         string      `mapstructure:"img"`
	CreatedAt   interface{} `mapstructure:"createdAt"`
}

// Normalize converts a stored record into a Product. It reports false when raw is not
// an object.
func Normalize(id string, raw interface{}) (Product, bool) {
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return Product{}, false
	}
	var rp rawProduct
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rp,
	})
	if err != nil {
		return Product{}, false
	}
	// a field of the wrong shape only loses that field
	_ = dec.Decode(fields)

	p := Product{
		ID:          id,
		Name:        rp.Name,
		Category:    rp.Category,
		Description: rp.Description,
		Price:       parsePrice(rp.Price),
		Quantity:    parseQuantity(rp.Quantity, rp.Qty),
		Image:       rp.Image,
		CreatedAt:   cast.ToInt64(plain(rp.CreatedAt)),
	}
	if p.Image == "" {
		p.Image = rp.Img
	}
	if p.Name == "" {
		p.Name = defaultName
	}
	if p.Category == "" {
		p.Category = defaultCategory
	}
	return p, true
}

// NormalizeAll converts a products collection. Entries that are not objects are
// dropped.
func NormalizeAll(data map[string]interface{}) Catalog {
	c := make(Catalog, len(data))
	for id, raw := range data {
		if p, ok := Normalize(id, raw); ok {
			c[id] = p
		}
	}
	return c
}

// parseQuantity prefers quantity over the legacy qty field. Missing, unparsable and
// negative values all become 0; fractions are truncated.
func parseQuantity(quantity, legacy interface{}) int {
	v := quantity
	if v == nil {
		v = legacy
	}
	d, err := parseDecimal(v)
	if err != nil || d.IsNegative() {
		return 0
	}
	d = d.Truncate(0)
	if d.GreaterThan(maxCount) {
		return math.MaxInt
	}
	return int(d.IntPart())
}

var maxCount = decimal.NewFromInt(math.MaxInt)

var errNotWhole = errors.New("not a whole number")

// ParseCount reads v as a base-10 whole number. Leading zeros are decimal, and hex or
// octal prefixes are rejected.
func ParseCount(v interface{}) (int, error) {
	d, err := parseDecimal(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() || d.Abs().GreaterThan(maxCount) {
		return 0, errNotWhole
	}
	return int(d.IntPart()), nil
}

func parseDecimal(v interface{}) (decimal.Decimal, error) {
	s, err := cast.ToStringE(plain(v))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func parsePrice(v interface{}) decimal.Decimal {
	var d decimal.Decimal
	var err error
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case json.Number:
		d, err = decimal.NewFromString(t.String())
	case string:
		d, err = decimal.NewFromString(t)
	default:
		var f float64
		f, err = cast.ToFloat64E(t)
		d = decimal.NewFromFloat(f)
	}
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// plain unwraps json.Number so cast sees a string it can parse.
func plain(v interface{}) interface{} {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}
