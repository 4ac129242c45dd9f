// Package signing builds the authentication material each exchange expects on
// private REST calls. Signers never touch the network; their clock is
// injectable so signatures can be checked against fixed vectors.
package signing

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Clock returns the current time
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// sortedQuery encodes values with keys in ascending order. Empty values are
// dropped when skipEmpty is set.
func sortedQuery(values url.Values, skipEmpty bool) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if skipEmpty && v == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
