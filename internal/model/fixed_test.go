package model

import "testing"

func TestAppendParseE8RoundTrip(t *testing.T) {
	values := []int64{
		0,
		1,
		-1,
		99,
		100_000_000,
		-100_000_000,
		10_075_000_000,
		123_456_789,
		-123_456_789,
		987_654_321_012_345_678,
		-987_654_321_012_345_678,
	}
	for _, v := range values {
		text := string(AppendE8(nil, v))
		got, err := ParseE8(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if got != v {
			t.Fatalf("round-trip mismatch for %d: formatted %q, parsed %d", v, text, got)
		}
	}
}

func TestParseE8Text(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100.75", 10_075_000_000},
		{"0.00000001", 1},
		{"-0.5", -50_000_000},
		{"2", 200_000_000},
		{"0.000000019", 1}, // truncated beyond scale
	}
	for _, c := range cases {
		got, err := ParseE8(c.in)
		if err != nil {
			t.Fatalf("parse %q: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("parse %q: got %d want %d", c.in, got, c.want)
		}
	}

	if _, err := ParseE8("not-a-number"); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestAppendE8Format(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0.00000000"},
		{1, "0.00000001"},
		{-1, "-0.00000001"},
		{10_075_000_000, "100.75000000"},
		{-50_000_000, "-0.50000000"},
	}
	for _, c := range cases {
		if got := string(AppendE8(nil, c.in)); got != c.want {
			t.Fatalf("format %d: got %q want %q", c.in, got, c.want)
		}
	}
}

func TestMulDiv(t *testing.T) {
	// price * qty / E8 with values that overflow a 64-bit product.
	price := int64(2_300_000_000_000) // 23000.0
	qty := int64(9_000_000_000_000)   // 90000.0
	got := MulDiv(price, qty, E8)
	want := int64(2_070_000_000_000_000_00) // 23000 * 90000 = 2.07e9, E8 scaled
	if got != want {
		t.Fatalf("MulDiv: got %d want %d", got, want)
	}

	if got := MulDiv(-price, qty, E8); got != -want {
		t.Fatalf("MulDiv sign: got %d want %d", got, -want)
	}
	if got := MulDiv(0, qty, E8); got != 0 {
		t.Fatalf("MulDiv zero: got %d", got)
	}
}
