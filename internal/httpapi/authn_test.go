package httpapi

import "testing"

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{"Bearer   abc  ", "abc", true},
		{"Basic dXNlcg==", "", false},
		{"Bearer ", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, c := range cases {
		got, err := extractBearerToken(c.header)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("%q: got %q, %v", c.header, got, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%q: expected error", c.header)
		}
	}
}
