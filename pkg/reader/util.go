package reader

import (
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/ansel1/merry/v2"
)

func deferWrap(err *error) {
	if err != nil {
		*err = merry.WrapSkipping(*err, 1)
	}
}

func logHex(key string, value []byte) slog.Attr {
	return slog.String(key, strings.ToUpper(hex.EncodeToString(value)))
}
