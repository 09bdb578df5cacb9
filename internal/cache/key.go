package cache

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// EpochKey is the counter bumped whenever table changes.
func EpochKey(namespace, table string) string {
	return namespace + ":" + table + ":epoch"
}

// Key addresses one statement's result under a table epoch:
// <ns>:<table>:<epoch>:<xxh3(text, args)>.
func Key(namespace, table string, epoch int64, text string, args []any) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode cache key args: %w", err)
	}
	sum := xxh3.HashString(text + "\x00" + string(encoded))
	return namespace + ":" + table + ":" + strconv.FormatInt(epoch, 10) + ":" + fmt.Sprintf("%016x", sum), nil
}
