package catalog

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Paracetamol-500mg (Strip)", want: "paracetamol 500mg strip"},
		{in: "  CROCIN   ADVANCE  ", want: "crocin advance"},
		{in: "D'Cold Total", want: "d cold total"},
		{in: "ORS @ 21g!!", want: "ors 21g"},
		{in: "", want: ""},
		{in: "---", want: ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIntegerTokens(t *testing.T) {
	cases := []struct {
		in   string
		want []int64
	}{
		{in: "paracetamol 500 mg", want: []int64{500}},
		{in: "combiflam 400 325", want: []int64{400, 325}},
		{in: "aspirin", want: []int64{}},
		{in: "b12 60k", want: []int64{12, 60}},
	}
	for _, tc := range cases {
		if got := IntegerTokens(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("IntegerTokens(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNamesCompatible(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{a: "aspirin", b: "aspirin 650", want: true},
		{a: "drug 500", b: "drug 650", want: false},
		{a: "drug 500", b: "drug 500 xr", want: true},
		{a: "combiflam 400 325", b: "combiflam 400", want: false},
		{a: "plain", b: "also plain", want: true},
	}
	for _, tc := range cases {
		if got := NamesCompatible(tc.a, tc.b); got != tc.want {
			t.Errorf("NamesCompatible(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
