package skk

import "strings"

var romajiTable = map[string]string{
	"a": "あ", "i": "い", "u": "う", "e": "え", "o": "お",
	"ka": "か", "ki": "き", "ku": "く", "ke": "け", "ko": "こ",
	"ga": "が", "gi": "ぎ", "gu": "ぐ", "ge": "げ", "go": "ご",
	"sa": "さ", "si": "し", "su": "す", "se": "せ", "so": "そ", "shi": "し",
	"za": "ざ", "zi": "じ", "zu": "ず", "ze": "ぜ", "zo": "ぞ", "ji": "じ",
	"ta": "た", "ti": "ち", "tu": "つ", "te": "て", "to": "と", "chi": "ち", "tsu": "つ",
	"da": "だ", "di": "ぢ", "du": "づ", "de": "で", "do": "ど",
	"na": "な", "ni": "に", "nu": "ぬ", "ne": "ね", "no": "の",
	"ha": "は", "hi": "ひ", "hu": "ふ", "he": "へ", "ho": "ほ", "fu": "ふ",
	"ba": "ば", "bi": "び", "bu": "ぶ", "be": "べ", "bo": "ぼ",
	"pa": "ぱ", "pi": "ぴ", "pu": "ぷ", "pe": "ぺ", "po": "ぽ",
	"ma": "ま", "mi": "み", "mu": "む", "me": "め", "mo": "も",
	"ya": "や", "yu": "ゆ", "yo": "よ",
	"ra": "ら", "ri": "り", "ru": "る", "re": "れ", "ro": "ろ",
	"wa": "わ", "wo": "を", "nn": "ん", "n'": "ん",
	"va": "ゔぁ", "vi": "ゔぃ", "vu": "ゔ", "ve": "ゔぇ", "vo": "ゔぉ",
	"fa": "ふぁ", "fi": "ふぃ", "fe": "ふぇ", "fo": "ふぉ",
	"je": "じぇ", "she": "しぇ", "che": "ちぇ", "thi": "てぃ", "dhi": "でぃ",

	"kya": "きゃ", "kyu": "きゅ", "kyo": "きょ",
	"gya": "ぎゃ", "gyu": "ぎゅ", "gyo": "ぎょ",
	"sya": "しゃ", "syu": "しゅ", "syo": "しょ", "sha": "しゃ", "shu": "しゅ", "sho": "しょ",
	"zya": "じゃ", "zyu": "じゅ", "zyo": "じょ", "ja": "じゃ", "ju": "じゅ", "jo": "じょ",
	"tya": "ちゃ", "tyu": "ちゅ", "tyo": "ちょ", "cha": "ちゃ", "chu": "ちゅ", "cho": "ちょ",
	"dya": "ぢゃ", "dyu": "ぢゅ", "dyo": "ぢょ",
	"nya": "にゃ", "nyu": "にゅ", "nyo": "にょ",
	"hya": "ひゃ", "hyu": "ひゅ", "hyo": "ひょ",
	"bya": "びゃ", "byu": "びゅ", "byo": "びょ",
	"pya": "ぴゃ", "pyu": "ぴゅ", "pyo": "ぴょ",
	"mya": "みゃ", "myu": "みゅ", "myo": "みょ",
	"rya": "りゃ", "ryu": "りゅ", "ryo": "りょ",

	"xa": "ぁ", "xi": "ぃ", "xu": "ぅ", "xe": "ぇ", "xo": "ぉ",
	"xya": "ゃ", "xyu": "ゅ", "xyo": "ょ", "xtu": "っ", "xtsu": "っ", "xwa": "ゎ",

	"-": "ー", ",": "、", ".": "。", "[": "「", "]": "」",
	"!": "！", "?": "？", "~": "〜", "/": "・",
	"z,": "‥", "z.": "…", "z/": "・", "z-": "〜", "zh": "←", "zj": "↓", "zk": "↑", "zl": "→",
}

// romajiPrefixes holds every proper prefix of a romajiTable key.
var romajiPrefixes = func() map[string]bool {
	p := make(map[string]bool)
	for k := range romajiTable {
		for i := 1; i < len(k); i++ {
			p[k[:i]] = true
		}
	}
	return p
}()

func isConsonant(c byte) bool {
	return c >= 'a' && c <= 'z' && !strings.ContainsRune("aiueon", rune(c))
}

// romaji accumulates keystrokes until they spell a kana.
type romaji struct {
	pending string
}

// feed appends c and returns the hiragana (or passthrough characters) that
// became final.
func (r *romaji) feed(c rune) string {
	var out strings.Builder
	s := r.pending + string(c)
	for s != "" {
		if kana, ok := romajiTable[s]; ok {
			out.WriteString(kana)
			s = ""
			break
		}
		if romajiPrefixes[s] {
			break
		}
		if len(s) == 1 || s[0] >= 0x80 {
			out.WriteString(s)
			s = ""
			break
		}
		switch {
		case s[0] == s[1] && isConsonant(s[0]):
			out.WriteString("っ")
		case s[0] == 'n':
			out.WriteString("ん")
		}
		s = s[1:]
	}
	r.pending = s
	return out.String()
}

// flush finalizes what is pending: a lone "n" becomes ん, anything else is
// dropped.
func (r *romaji) flush() string {
	p := r.pending
	r.pending = ""
	if p == "n" {
		return "ん"
	}
	return ""
}

func (r *romaji) backspace() {
	if r.pending != "" {
		r.pending = r.pending[:len(r.pending)-1]
	}
}

func (r *romaji) reset() {
	r.pending = ""
}
