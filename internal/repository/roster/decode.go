package roster

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
)

var (
	utf8BOM         = []byte{0xEF, 0xBB, 0xBF}
	replacementChar = []byte{0xEF, 0xBF, 0xBD}
)

// Decode converts roster bytes to UTF-8.
// encoding is auto, utf-8 or shift_jis (aliases sjis, cp932). Auto keeps valid UTF-8
// and otherwise decodes as Shift-JIS.
func Decode(data []byte, encoding string) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	switch strings.ToLower(encoding) {
	case "", "auto":
		if utf8.Valid(data) {
			return data, nil
		}
		return decodeShiftJIS(data)
	case "utf-8", "utf8":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: roster is not valid utf-8", domain.ErrDataSource)
		}
		return data, nil
	case "shift_jis", "sjis", "cp932":
		return decodeShiftJIS(data)
	default:
		return nil, fmt.Errorf("%w: unsupported roster encoding %q", domain.ErrDataSource, encoding)
	}
}

func decodeShiftJIS(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode shift_jis: %w", domain.ErrDataSource, err)
	}
	// The decoder substitutes U+FFFD for invalid bytes instead of failing.
	if !utf8.Valid(out) || (bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(data, replacementChar)) {
		return nil, fmt.Errorf("%w: roster bytes are neither utf-8 nor shift_jis", domain.ErrDataSource)
	}
	return out, nil
}

// Column positions of a roster header. -1 means absent.
type columns struct {
	name, yomi, party, house, position int
}

var headerAliases = map[string]string{
	"name":     "name",
	"氏名":       "name",
	"名前":       "name",
	"議員名":      "name",
	"yomi":     "yomi",
	"よみ":       "yomi",
	"読み":       "yomi",
	"ふりがな":     "yomi",
	"party":    "party",
	"会派":       "party",
	"政党":       "party",
	"house":    "house",
	"院":        "house",
	"position": "position",
	"役職":       "position",
}

// mapHeader resolves header cells to column positions. The first occurrence of a column wins.
func mapHeader(cells []string) (columns, bool) {
	c := columns{name: -1, yomi: -1, party: -1, house: -1, position: -1}
	for i, cell := range cells {
		key := strings.ToLower(legislator.NormalizeName(strings.TrimSpace(cell)))
		var slot *int
		switch headerAliases[key] {
		case "name":
			slot = &c.name
		case "yomi":
			slot = &c.yomi
		case "party":
			slot = &c.party
		case "house":
			slot = &c.house
		case "position":
			slot = &c.position
		default:
			continue
		}
		if *slot < 0 {
			*slot = i
		}
	}
	return c, c.name >= 0
}

func (c columns) row(cells []string) legislator.Legislator {
	get := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return legislator.New(get(c.name), get(c.yomi), get(c.party), get(c.house), get(c.position))
}
