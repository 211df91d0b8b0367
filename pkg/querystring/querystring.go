// Package querystring decodes URL-encoded key/value pairs the way the sign-in
// redirect produces them.
package querystring

import (
	"net/url"
	"strings"
)

// rfc3986 undoes the escapes for characters RFC3986 reserves but encoders
// commonly leave unescaped.
var rfc3986 = strings.NewReplacer(
	"%21", "!",
	"%2A", "*",
	"%27", "'",
	"%28", "(",
	"%29", ")",
)

// decodeComponent percent-decodes a single key or value. A '+' is kept as-is.
func decodeComponent(s string) (string, error) {
	return url.PathUnescape(rfc3986.Replace(s))
}

// DecodeForm splits encoded on '&' and each pair on '='. Pairs that do not have
// exactly one '=' are dropped. If any key or value fails to decode the whole
// input is treated as carrying no parameters and an empty map is returned.
func DecodeForm(encoded string) map[string]string {
	decoded := make(map[string]string)
	for _, param := range strings.Split(encoded, "&") {
		if param == "" {
			continue
		}
		keyval := strings.Split(param, "=")
		if len(keyval) != 2 {
			continue
		}
		key, err := decodeComponent(keyval[0])
		if err != nil {
			return map[string]string{}
		}
		val, err := decodeComponent(keyval[1])
		if err != nil {
			return map[string]string{}
		}
		decoded[key] = val
	}
	return decoded
}

// QueryParams decodes everything after the first '?' in locationHref.
// Any later '?' characters are part of the query. It returns an empty map when
// there is no query.
func QueryParams(locationHref string) map[string]string {
	_, query, found := strings.Cut(locationHref, "?")
	if !found {
		return map[string]string{}
	}
	return DecodeForm(query)
}
