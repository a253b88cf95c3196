package portrange

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("single ports yield exactly one element", func(t *testing.T) {
		t.Parallel()

		for _, p := range []int{0, 1, 22, 443, 8080, 65535} {
			got, err := Parse(strconv.Itoa(p))
			if err != nil {
				t.Fatalf("Parse(%d) unexpected error: %v", p, err)
			}
			if !reflect.DeepEqual(got, []int{p}) {
				t.Errorf("Parse(%d) = %v, want [%d]", p, got, p)
			}
		}
	})

	t.Run("ranges yield the inclusive ascending sequence", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			expr string
			from int
			to   int
		}{
			{expr: "0-0", from: 0, to: 0},
			{expr: "20-25", from: 20, to: 25},
			{expr: "65530-65535", from: 65530, to: 65535},
			{expr: "1-1024", from: 1, to: 1024},
		}

		for _, tt := range tests {
			got, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.expr, err)
			}
			if len(got) != tt.to-tt.from+1 {
				t.Fatalf("Parse(%q) len = %d, want %d", tt.expr, len(got), tt.to-tt.from+1)
			}
			for i, p := range got {
				if p != tt.from+i {
					t.Fatalf("Parse(%q)[%d] = %d, want %d", tt.expr, i, p, tt.from+i)
				}
			}
		}
	})

	t.Run("hyphen yields every port", func(t *testing.T) {
		t.Parallel()

		got, err := Parse(AllPorts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 65536 {
			t.Fatalf("expected 65536 ports, got %d", len(got))
		}
		if got[0] != 0 || got[len(got)-1] != 65535 {
			t.Errorf("expected [0 ... 65535], got [%d ... %d]", got[0], got[len(got)-1])
		}
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		t.Parallel()

		got, err := Parse(" 80 ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, []int{80}) {
			t.Errorf("got %v, want [80]", got)
		}
	})
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want error
	}{
		{name: "single port above max", expr: "70000", want: ErrPortOutOfRange},
		{name: "reversed range", expr: "10-5", want: ErrInvalidRange},
		{name: "negative port", expr: "-1", want: ErrInvalidFormat},
		{name: "letters", expr: "abc", want: ErrInvalidFormat},
		{name: "empty expression", expr: "", want: ErrInvalidFormat},
		{name: "range end above max", expr: "1-70000", want: ErrPortOutOfRange},
		{name: "six digits", expr: "123456", want: ErrInvalidFormat},
		{name: "comma list is not supported", expr: "22,80", want: ErrInvalidFormat},
		{name: "open ended range", expr: "22-", want: ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.expr)
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got %v", tt.expr, got)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.expr, err, tt.want)
			}
			if got != nil {
				t.Errorf("Parse(%q) expected no ports, got %v", tt.expr, got)
			}
		})
	}
}

func TestSpan(t *testing.T) {
	t.Parallel()

	if got := Span(5, 4); got != nil {
		t.Errorf("Span(5, 4) = %v, want nil", got)
	}
	if got := Span(3, 5); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("Span(3, 5) = %v, want [3 4 5]", got)
	}
}
