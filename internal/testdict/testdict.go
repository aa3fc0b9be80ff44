// Package testdict provides a small IPADIC-format dictionary for tests.
package testdict

import (
	"testing"
	"testing/fstest"

	"goya/ipadic"
	"goya/model"
)

// Word ids of the lexicon rows, in file order.
const (
	Sumomo model.WordID = iota
	Momo
	MomoAlt
	MoNoun
	Su
	Uchi
	Tokyo
	Kyoto
	To
	Neko
	NekoAlt
	Kana
	MoParticle
	No
	Ni
)

const nouns = `すもも,1,1,1000,名詞,一般,*,*,*,*,すもも,スモモ,スモモ
もも,1,1,1000,名詞,一般,*,*,*,*,もも,モモ,モモ
もも,1,1,1500,名詞,一般,*,*,*,*,もも,モモ,モモ
も,1,1,3000,名詞,一般,*,*,*,*,も,モ,モ
す,1,1,4000,名詞,一般,*,*,*,*,す,ス,ス
うち,1,1,1000,名詞,非自立,副詞可能,*,*,*,うち,ウチ,ウチ
東京,1,1,800,名詞,固有名詞,地域,一般,*,*,東京,トウキョウ,トーキョー
京都,1,1,800,名詞,固有名詞,地域,一般,*,*,京都,キョウト,キョート
都,1,1,2500,名詞,接尾,地域,*,*,*,都,ト,ト
ねこ,1,1,700,名詞,一般,*,*,*,*,ねこ,ネコ,ネコ
ねこ,1,1,700,名詞,一般,*,*,*,*,ねこ,ネコ,ネコ
カナ,5,5,12000,名詞,一般,*,*,*,*,カナ,カナ,カナ
`

const particles = `も,2,2,500,助詞,係助詞,*,*,*,*,も,モ,モ
の,3,3,300,助詞,連体化,*,*,*,*,の,ノ,ノ
に,2,2,400,助詞,格助詞,一般,*,*,*,に,ニ,ニ
`

const matrix = `6 6
0 1 0
0 2 800
0 3 800
1 0 0
1 1 500
1 2 -500
1 3 -400
2 0 200
2 1 -300
2 2 1000
3 0 500
3 1 -200
`

const charDef = `# class invoke group length
DEFAULT      0 1 0
SPACE        0 1 0
KANJI        0 0 2
SYMBOL       1 1 0
NUMERIC      1 1 0
ALPHA        1 1 0
HIRAGANA     0 1 0
KATAKANA     1 1 0
KANJINUMERIC 1 1 0

0x0020         SPACE
0x0021..0x002F SYMBOL
0x0030..0x0039 NUMERIC
0x0041..0x005A ALPHA
0x0061..0x007A ALPHA
0x3041..0x309F HIRAGANA
0x30A1..0x30FF KATAKANA
0x30FC         KATAKANA HIRAGANA  # prolonged sound mark
0x4E00..0x9FFF KANJI
0x4E00         KANJINUMERIC KANJI
0x4E8C         KANJINUMERIC KANJI
`

const unkDef = `DEFAULT,5,5,20000,記号,一般,*,*,*,*,*
SPACE,4,4,10000,記号,空白,*,*,*,*,*
KANJI,5,5,15000,名詞,一般,*,*,*,*,*
KANJI,5,5,16000,名詞,固有名詞,*,*,*,*,*
SYMBOL,4,4,11000,記号,一般,*,*,*,*,*
NUMERIC,5,5,9000,名詞,数,*,*,*,*,*
ALPHA,5,5,12000,名詞,固有名詞,組織,*,*,*,*
HIRAGANA,5,5,18000,名詞,一般,*,*,*,*,*
KATAKANA,5,5,12000,名詞,一般,*,*,*,*,*
`

// FS returns the UTF-8 source tree.
func FS() fstest.MapFS {
	return fstest.MapFS{
		"Noun.csv":   {Data: []byte(nouns)},
		"Postp.csv":  {Data: []byte(particles)},
		"matrix.def": {Data: []byte(matrix)},
		"char.def":   {Data: []byte(charDef)},
		"unk.def":    {Data: []byte(unkDef)},
	}
}

// Compile compiles FS or fails the test.
func Compile(tb testing.TB) *ipadic.Compiled {
	tb.Helper()
	c, err := ipadic.Compile(FS(), ipadic.Options{Encoding: "utf-8"})
	if err != nil {
		tb.Fatalf("compile test dictionary: %v", err)
	}
	return c
}
