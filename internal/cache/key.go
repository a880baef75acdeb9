// Package cache implements the TTL cache that fronts the weather
// pipeline: deterministic key derivation, a table serializer, and a
// manager composing both over a pluggable storage backend.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Namespaces partition keys by payload kind.
const (
	NamespaceRaw       = "weather_raw"
	NamespaceProcessed = "weather_processed"
)

// coordPrecision is the fixed number of decimal places coordinates are
// formatted with before hashing. Without a fixed precision, 6.244 and
// 6.2440 would derive different keys and silently miss the cache.
const coordPrecision = 4

// ErrInvalidParams marks key-derivation input the cache refuses to hash.
var ErrInvalidParams = errors.New("cache: non-finite coordinate in key parameters")

// Key derives a deterministic cache key from a namespace and ordered
// parameter strings. Parameters are positional: swapping two values
// changes the key. The result is the hex md5 of the joined components,
// stable across process restarts.
func Key(namespace string, parts ...string) string {
	components := append([]string{namespace}, parts...)
	sum := md5.Sum([]byte(strings.Join(components, "_")))
	return hex.EncodeToString(sum[:])
}

// Coordinate renders a coordinate in its canonical fixed-precision
// decimal form for key derivation.
func Coordinate(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", ErrInvalidParams
	}
	return strconv.FormatFloat(v, 'f', coordPrecision, 64), nil
}
