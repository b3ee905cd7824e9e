package texture

import (
	"regexp"
	"strconv"
	"strings"
)

// TilePlaceholder is the wildcard token standing in for a numeric tile index
// in tiled texture paths.
const TilePlaceholder = "<UDIM>"

// minTileNumber is the lowest valid tile index. Four-digit numbers below it
// (resolution suffixes, frame counters) are not tiles.
const minTileNumber = 1001

var tileSuffixRe = regexp.MustCompile(`([._-])(\d{4})(\.[A-Za-z0-9]+)$`)

// DetectTileToken recognizes tiled texture paths. A path already carrying
// the placeholder is returned verbatim. Otherwise a trailing
// <separator><4-digit tile> immediately before the extension is rewritten
// to the placeholder, preserving separator and extension. Paths without a
// qualifying tile number return false.
func DetectTileToken(path string) (string, bool) {
	if strings.Contains(path, TilePlaceholder) {
		return path, true
	}
	m := tileSuffixRe.FindStringSubmatchIndex(path)
	if m == nil {
		return "", false
	}
	tile, err := strconv.Atoi(path[m[4]:m[5]])
	if err != nil || tile < minTileNumber {
		return "", false
	}
	return path[:m[4]] + TilePlaceholder + path[m[6]:m[7]], true
}
