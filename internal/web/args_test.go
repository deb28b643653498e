package web

import (
	"reflect"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`new hello world -t work`, []string{"new", "hello", "world", "-t", "work"}},
		{`new "hello world" -t work`, []string{"new", "hello world", "-t", "work"}},
		{`new 'it is "quoted"'`, []string{"new", `it is "quoted"`}},
		{`new escaped\ space`, []string{"new", "escaped space"}},
		{`  list   -l  5 `, []string{"list", "-l", "5"}},
		{``, nil},
	}
	for _, tc := range cases {
		got, err := splitCommand(tc.in)
		if err != nil {
			t.Errorf("splitCommand(%q): %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitCommand(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestSplitCommandErrors(t *testing.T) {
	if _, err := splitCommand(`new "unclosed`); err == nil {
		t.Error("unclosed quote accepted")
	}
	if _, err := splitCommand(`new trailing\`); err == nil {
		t.Error("trailing backslash accepted")
	}
}

func TestParseArgs(t *testing.T) {
	spec := flagSpec{
		value:   map[string]string{"-t": "tag", "--tag": "tag", "-l": "limit", "--limit": "limit"},
		boolean: map[string]string{"-a": "all", "--all": "all"},
	}

	p, err := parseArgs([]string{"hello", "-t", "work", "--tag=deep", "-a", "world", "--limit", "5"}, spec)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !reflect.DeepEqual(p.args, []string{"hello", "world"}) {
		t.Errorf("args = %v", p.args)
	}
	if !reflect.DeepEqual(p.values["tag"], []string{"work", "deep"}) {
		t.Errorf("tags = %v", p.values["tag"])
	}
	if p.first("limit") != "5" || !p.bools["all"] {
		t.Errorf("parsed = %+v", p)
	}
}

func TestParseArgsErrors(t *testing.T) {
	spec := flagSpec{
		value:   map[string]string{"-t": "tag"},
		boolean: map[string]string{"-a": "all"},
	}
	if _, err := parseArgs([]string{"-x"}, spec); err == nil {
		t.Error("unknown option accepted")
	}
	if _, err := parseArgs([]string{"-t"}, spec); err == nil {
		t.Error("missing value accepted")
	}
	if _, err := parseArgs([]string{"-a=yes"}, spec); err == nil {
		t.Error("boolean with value accepted")
	}
}
