package zillow

import (
	"fmt"
	"strings"
)

// LatLong は緯度経度の組。
type LatLong struct {
	Latitude  float64
	Longitude float64
}

// encodeRect は検索矩形をプロバイダー固有のコンパクト表現に変換する。
// 4座標を小数点区切りで連結した文字列を走査し、
//   - '.' は出力から落とす
//   - '-' は次のグループ境界を1文字手前に縮める
//   - ',' でグループ境界をリセットする
//   - 各座標グループは有効8文字で打ち切る
//
// という独自ルールで桁グループを組み立てる。
func encodeRect(bottomLeft, topRight LatLong) string {
	raw := fmt.Sprintf("%v,%v,%v,%v",
		bottomLeft.Longitude, bottomLeft.Latitude,
		topRight.Longitude, topRight.Latitude,
	)

	var rect strings.Builder
	tokenLength := 0
	for _, char := range raw {
		switch {
		case char == '.':
			continue
		case char == '-':
			tokenLength--
		case char == ',':
			tokenLength = -1
		case tokenLength == 8:
			continue
		}
		rect.WriteRune(char)
		tokenLength++
	}

	return rect.String()
}
