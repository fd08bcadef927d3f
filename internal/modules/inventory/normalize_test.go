package inventory

import (
	"encoding/json"
	"testing"
)

func TestNormalizeQuantity(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
		want int
	}{
		{"canonical", map[string]interface{}{"quantity": json.Number("7")}, 7},
		{"legacy", map[string]interface{}{"qty": json.Number("4")}, 4},
		{"canonical wins", map[string]interface{}{"quantity": json.Number("2"), "qty": json.Number("9")}, 2},
		{"canonical zero wins", map[string]interface{}{"quantity": json.Number("0"), "qty": json.Number("9")}, 0},
		{"missing", map[string]interface{}{}, 0},
		{"numeric string", map[string]interface{}{"quantity": "12"}, 12},
		{"fraction truncated", map[string]interface{}{"quantity": json.Number("3.9")}, 3},
		{"garbage", map[string]interface{}{"quantity": "lots"}, 0},
		{"negative", map[string]interface{}{"quantity": json.Number("-4")}, 0},
		{"leading zero is decimal", map[string]interface{}{"quantity": "010"}, 10},
		{"leading zero eight", map[string]interface{}{"quantity": "08"}, 8},
		{"hex rejected", map[string]interface{}{"quantity": "0x10"}, 0},
		{"float input", map[string]interface{}{"quantity": 6.0}, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := Normalize("p1", tc.raw)
			if !ok {
				t.Fatal("expected product")
			}
			if p.Quantity != tc.want {
				t.Errorf("expected %d, got %d", tc.want, p.Quantity)
			}
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	p, ok := Normalize("p1", map[string]interface{}{
		"price":     "12.50",
		"img":       "legacy.png",
		"createdAt": json.Number("1700000000000"),
	})
	if !ok {
		t.Fatal("expected product")
	}
	if p.Name != "Unnamed Product" || p.Category != "Uncategorized" {
		t.Errorf("expected defaults, got %q / %q", p.Name, p.Category)
	}
	if p.Price.String() != "12.5" {
		t.Errorf("expected price 12.5, got %s", p.Price)
	}
	if p.Image != "legacy.png" {
		t.Errorf("expected legacy image, got %q", p.Image)
	}
	if p.CreatedAt != 1700000000000 {
		t.Errorf("unexpected created at %d", p.CreatedAt)
	}

	p, _ = Normalize("p2", map[string]interface{}{"price": "free", "image": "new.png", "img": "old.png"})
	if !p.Price.IsZero() {
		t.Errorf("expected unparsable price to be 0, got %s", p.Price)
	}
	if p.Image != "new.png" {
		t.Errorf("expected image to win over img, got %q", p.Image)
	}

	if _, ok := Normalize("p3", "not a record"); ok {
		t.Error("expected non-object to be rejected")
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in      interface{}
		want    int
		wantErr bool
	}{
		{"010", 10, false},
		{" 42 ", 42, false},
		{json.Number("7"), 7, false},
		{5.0, 5, false},
		{"0x1F", 0, true},
		{"2.5", 0, true},
		{"ten", 0, true},
		{"", 0, true},
		{nil, 0, true},
		{"99999999999999999999999", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseCount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%v: expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%v: expected %d, got %d (%v)", tc.in, tc.want, got, err)
		}
	}
}
