package attr

import (
	"strconv"
	"strings"
)

// ParseName splits a raw attribute name into its lowercase base and the
// numeric index carried by a trailing run of digits, so "TVolume12" becomes
// ("tvolume", 12). Names without trailing digits have index 0.
//
// A name made only of digits, or whose index does not fit in an int, yields
// an empty base, which never matches a catalog entry.
func ParseName(raw string) (base string, index int) {
	name := strings.ToLower(raw)

	end := len(name)
	start := end
	for start > 0 && name[start-1] >= '0' && name[start-1] <= '9' {
		start--
	}
	if start == end {
		return name, 0
	}
	if start == 0 {
		return "", 0
	}

	n, err := strconv.Atoi(name[start:])
	if err != nil {
		return "", 0
	}
	return name[:start], n
}
