package fixedpoint

import (
	"errors"
	"testing"
)

func TestFromString_RoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"-1", "-1"},
		{"1.5", "1.5"},
		{"1.50000000", "1.5"},
		{"1.00000001", "1.00000001"},
		{"0.1", "0.1"},
		{"-0.1", "-0.1"},
		{"123456789.12345678", "123456789.12345678"},
	}
	for _, c := range cases {
		fp, err := FromString(c.in)
		if err != nil {
			t.Fatalf("FromString(%q): %v", c.in, err)
		}
		if got := fp.String(); got != c.want {
			t.Errorf("FromString(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFromString_TruncatesLongerFraction(t *testing.T) {
	fp, err := FromString("1.123456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fp.String(); got != "1.12345678" {
		t.Errorf("got %q, want %q", got, "1.12345678")
	}
}

func TestFromString_InvalidSyntax(t *testing.T) {
	for _, in := range []string{"", "-", "1.2.3", "abc", "1.2a"} {
		if _, err := FromString(in); !errors.Is(err, ErrInvalidSyntax) {
			t.Errorf("FromString(%q): expected ErrInvalidSyntax, got %v", in, err)
		}
	}
}

func TestAddSub(t *testing.T) {
	a, _ := FromString("10.5")
	b, _ := FromString("2.25")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := sum.String(); got != "12.75" {
		t.Errorf("add = %q, want 12.75", got)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if got := diff.String(); got != "8.25" {
		t.Errorf("sub = %q, want 8.25", got)
	}
}

func TestAdd_Overflow(t *testing.T) {
	max := FromRaw(1<<63 - 1)
	one, _ := FromInteger(1)
	if _, err := max.Add(one); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestMul_RoundTowardZero(t *testing.T) {
	a, _ := FromString("2")
	b, _ := FromString("0.00000001")
	// 2 * 0.00000001 = 0.00000002, exact; verifies scale handling.
	got, err := a.Mul(b)
	if err != nil {
		t.Fatalf("mul: %v", err)
	}
	if got.String() != "0.00000002" {
		t.Errorf("mul = %q, want 0.00000002", got.String())
	}

	c, _ := FromString("1.00000003")
	d, _ := FromString("0.5")
	got, err = c.Mul(d)
	if err != nil {
		t.Fatalf("mul: %v", err)
	}
	// 1.00000003 * 0.5 = 0.500000015, truncates toward zero to 0.50000001
	if got.String() != "0.50000001" {
		t.Errorf("mul = %q, want 0.50000001", got.String())
	}
}

func TestDiv_DivisionByZero(t *testing.T) {
	a, _ := FromInteger(1)
	zero, _ := FromInteger(0)
	if _, err := a.Div(zero); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestDiv_RoundTowardZero(t *testing.T) {
	a, _ := FromInteger(1)
	b, _ := FromInteger(3)
	got, err := a.Div(b)
	if err != nil {
		t.Fatalf("div: %v", err)
	}
	if got.String() != "0.33333333" {
		t.Errorf("div = %q, want 0.33333333", got.String())
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		in     string
		places int
		want   string
	}{
		{"1.005", 2, "1.01"},
		{"1.004", 2, "1"},
		{"-1.005", 2, "-1.01"},
		{"1.5", 0, "2"},
		{"1.23456789", 8, "1.23456789"},
	}
	for _, c := range cases {
		fp, _ := FromString(c.in)
		got := fp.Round(c.places).String()
		if got != c.want {
			t.Errorf("Round(%q, %d) = %q, want %q", c.in, c.places, got, c.want)
		}
	}
}

func TestCmpSignIsZero(t *testing.T) {
	zero, _ := FromInteger(0)
	pos, _ := FromInteger(5)
	neg, _ := FromInteger(-5)

	if !zero.IsZero() {
		t.Error("zero.IsZero() = false")
	}
	if zero.Sign() != 0 || pos.Sign() != 1 || neg.Sign() != -1 {
		t.Error("Sign() mismatch")
	}
	if pos.Cmp(neg) <= 0 {
		t.Error("pos should be greater than neg")
	}
	if neg.Cmp(pos) >= 0 {
		t.Error("neg should be less than pos")
	}
}

func TestCents(t *testing.T) {
	fp, err := Cents(100050)
	if err != nil {
		t.Fatalf("cents: %v", err)
	}
	if got := fp.String(); got != "1000.5" {
		t.Errorf("Cents(100050) = %q, want 1000.5", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	fp, _ := FromString("42.42")
	data, err := fp.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored FixedPoint
	if err := restored.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Equal(fp) {
		t.Errorf("round-trip mismatch: got %s, want %s", restored, fp)
	}
}
