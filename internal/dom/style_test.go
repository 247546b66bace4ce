package dom

import (
	"reflect"
	"testing"
)

func TestParseDeclarations(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Declaration
	}{
		{
			name:  "single property",
			input: "color: red",
			want:  []Declaration{{Property: "color", Value: "red"}},
		},
		{
			name:  "multiple properties",
			input: "color: red; font-size: 14px",
			want: []Declaration{
				{Property: "color", Value: "red"},
				{Property: "font-size", Value: "14px"},
			},
		},
		{
			name:  "important marker",
			input: "color: red !important",
			want:  []Declaration{{Property: "color", Value: "red", Important: true}},
		},
		{
			name:  "camelCase property normalized",
			input: "backgroundColor: blue",
			want:  []Declaration{{Property: "background-color", Value: "blue"}},
		},
		{
			name:  "empty segments skipped",
			input: "; color: red ;;",
			want:  []Declaration{{Property: "color", Value: "red"}},
		},
		{
			name:  "value with colon",
			input: "background: url(http://x/y.png)",
			want:  []Declaration{{Property: "background", Value: "url(http://x/y.png)"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "missing value skipped",
			input: "color:",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDeclarations(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseDeclarations(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatDeclarations(t *testing.T) {
	decls := []Declaration{
		{Property: "color", Value: "red"},
		{Property: "font-size", Value: "14px", Important: true},
	}
	got := FormatDeclarations(decls)
	want := "color: red; font-size: 14px !important"
	if got != want {
		t.Errorf("FormatDeclarations = %q, want %q", got, want)
	}
}

func TestSetStyleProperty(t *testing.T) {
	n := CreateElement("div")

	SetStyleProperty(n, "color", "red", false)
	if got := GetAttr(n, "style"); got != "color: red" {
		t.Fatalf("after first set: %q", got)
	}

	SetStyleProperty(n, "fontSize", "14px", true)
	if got := GetAttr(n, "style"); got != "color: red; font-size: 14px !important" {
		t.Fatalf("after append: %q", got)
	}

	// Updating an existing property preserves declaration order.
	SetStyleProperty(n, "color", "blue", false)
	if got := GetAttr(n, "style"); got != "color: blue; font-size: 14px !important" {
		t.Fatalf("after update: %q", got)
	}
}

func TestStyleMapImportantSuffix(t *testing.T) {
	n := CreateElement("div")
	SetAttr(n, "style", "color: red !important; margin: 0")

	m := StyleMap(n)
	if m["color"] != "red !important" {
		t.Errorf("color = %q, want %q", m["color"], "red !important")
	}
	if m["margin"] != "0" {
		t.Errorf("margin = %q, want %q", m["margin"], "0")
	}
}

func TestClearStyle(t *testing.T) {
	n := CreateElement("div")
	SetAttr(n, "style", "color: red")
	ClearStyle(n)
	if HasAttr(n, "style") {
		t.Error("style attribute still present after ClearStyle")
	}
}

func TestSplitImportant(t *testing.T) {
	tests := []struct {
		input     string
		value     string
		important bool
	}{
		{"red !important", "red", true},
		{"red !IMPORTANT", "red", true},
		{"red", "red", false},
		{"  red  ", "red", false},
		{"!important", "", true},
	}
	for _, tt := range tests {
		value, important := SplitImportant(tt.input)
		if value != tt.value || important != tt.important {
			t.Errorf("SplitImportant(%q) = (%q, %v), want (%q, %v)",
				tt.input, value, important, tt.value, tt.important)
		}
	}
}

func TestCamelToKebab(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"backgroundColor", "background-color"},
		{"color", "color"},
		{"font-size", "font-size"},
		{"borderTopLeftRadius", "border-top-left-radius"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CamelToKebab(tt.input); got != tt.want {
			t.Errorf("CamelToKebab(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
