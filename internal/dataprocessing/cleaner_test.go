package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  RawCell
		want Cleaned
	}{
		{"empty cell", RawCell{Kind: RawEmpty}, Text("")},
		{"typed number", RawCell{Kind: RawNumber, Number: 40}, Number(40)},
		{"typed negative number", RawCell{Kind: RawNumber, Number: -3.5}, Number(-3.5)},
		{"bool true", RawCell{Kind: RawBool, Bool: true}, Number(1)},
		{"bool false", RawCell{Kind: RawBool}, Number(0)},
		{"padded decimal", RawCell{Kind: RawString, String: " 12.5 "}, Number(12.5)},
		{"percent sign stripped", RawCell{Kind: RawString, String: "35.5%"}, Number(35.5)},
		{"space before percent sign", RawCell{Kind: RawString, String: "35.5 %"}, Number(35.5)},
		{"space after currency sign", RawCell{Kind: RawString, String: "$ 12"}, Number(12)},
		{"unit suffix keeps stripped text", RawCell{Kind: RawString, String: "12 kg%"}, Text("12 kg")},
		{"negative string", RawCell{Kind: RawString, String: "-7"}, Number(-7)},
		{"inner space keeps text", RawCell{Kind: RawString, String: "1 000"}, Text("1 000")},
		{"punctuation stripped from text", RawCell{Kind: RawString, String: "S1 2024!"}, Text("S1 2024")},
		{"accented letters survive", RawCell{Kind: RawString, String: "Ménagères"}, Text("Ménagères")},
		{"underscore dropped", RawCell{Kind: RawString, String: "a_b"}, Text("ab")},
		{"only symbols", RawCell{Kind: RawString, String: "%$"}, Text("")},
		{"infinity stays text", RawCell{Kind: RawString, String: "Inf"}, Text("Inf")},
		{"nan stays text", RawCell{Kind: RawString, String: "NaN"}, Text("NaN")},
		{"hex stays text", RawCell{Kind: RawString, String: "0x1p3"}, Text("0x1p3")},
		{"comma is stripped", RawCell{Kind: RawString, String: "2,8"}, Number(28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestCoercion(t *testing.T) {
	t.Run("AsNumber", func(t *testing.T) {
		assert.Equal(t, 12.5, AsNumber(Number(12.5)))
		assert.Equal(t, 0.0, AsNumber(Text("abc")))
		assert.Equal(t, 0.0, AsNumber(Number(math.Inf(1))))
		assert.Equal(t, 0.0, AsNumber(Number(math.NaN())))
	})

	t.Run("AsCount truncates", func(t *testing.T) {
		assert.Equal(t, int64(250), AsCount(Number(250.9)))
		assert.Equal(t, int64(-2), AsCount(Number(-2.7)))
		assert.Equal(t, int64(0), AsCount(Text("n/a")))
		assert.Equal(t, int64(0), AsCount(Number(1e300)))
	})

	t.Run("AsText", func(t *testing.T) {
		assert.Equal(t, "Femmes", AsText(Text("Femmes")))
		assert.Equal(t, "2024", AsText(Number(2024)))
		assert.Equal(t, "2.8", AsText(Number(2.8)))
		assert.Equal(t, "", AsText(nil))
	})
}
