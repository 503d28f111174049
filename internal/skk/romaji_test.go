package skk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRomajiFeed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		pending string
	}{
		{"vowel", "a", "あ", ""},
		{"syllable", "ka", "か", ""},
		{"incomplete", "k", "", "k"},
		{"sokuon", "kka", "っか", ""},
		{"double n", "nna", "んあ", ""},
		{"n before consonant", "nk", "ん", "k"},
		{"n before punctuation", "n.", "ん。", ""},
		{"youon", "kyo", "きょ", ""},
		{"hepburn", "shitsu", "しつ", ""},
		{"small kana", "xtu", "っ", ""},
		{"unknown letter passes through", "qa", "qあ", ""},
		{"digit passes through", "k1", "1", ""},
		{"long vowel", "ra-men", "らーめ", "n"},
		{"brackets", "[]", "「」", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r romaji
			var out string
			for _, c := range tt.input {
				out += r.feed(c)
			}
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.pending, r.pending)
		})
	}
}

func TestRomajiFlush(t *testing.T) {
	r := romaji{pending: "n"}
	assert.Equal(t, "ん", r.flush())
	assert.Empty(t, r.pending)

	r = romaji{pending: "ky"}
	assert.Empty(t, r.flush())
	assert.Empty(t, r.pending)
}

func TestRomajiBackspace(t *testing.T) {
	r := romaji{pending: "ky"}
	r.backspace()
	assert.Equal(t, "k", r.pending)
	r.backspace()
	r.backspace()
	assert.Empty(t, r.pending)
}

func TestKanaConversion(t *testing.T) {
	assert.Equal(t, "カンジー", toKatakana("かんじー"))
	assert.Equal(t, "ａＢ１　", toZenkaku("aB1 "))
	assert.Equal(t, "かな", kana(Hiragana, "かな"))
	assert.Equal(t, Hiragana, otherKana(Katakana))
	assert.Equal(t, Katakana, otherKana(Hiragana))
}

func TestParseInputMode(t *testing.T) {
	for _, m := range []InputMode{Ascii, Hiragana, Katakana, Zenkaku} {
		got, err := ParseInputMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseInputMode("romaji")
	assert.Error(t, err)
}
