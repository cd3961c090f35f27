package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Blue Widget", "blue-widget"},
		{"Widget Holder", "widget-holder"},
		{"  Blue   Widget (XL)!  ", "blue-widget-xl"},
		{"USB-C Cable 2m", "usb-c-cable-2m"},
		{"Kadın Giyim", "kadin-giyim"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Crème Brûlée Set", "creme-brulee-set"},
		{"Straße", "strasse"},
		{"---", ""},
		{"", ""},
		{"日本", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}
