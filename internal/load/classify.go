package load

import (
	"strings"
)

// Class is the fundamental audio type of a source
type Class int

const (
	Unrecognized Class = iota
	Module
	Sampled
)

func (c Class) String() string {
	switch c {
	case Module:
		return "module"
	case Sampled:
		return "sample"
	}
	return "unrecognized"
}

var extensions = map[string]Class{
	".mo3":  Module,
	".mod":  Module,
	".xm":   Module,
	".s3m":  Module,
	".it":   Module,
	".umx":  Module,
	".mtm":  Module,
	".wav":  Sampled,
	".aiff": Sampled,
	".mp3":  Sampled,
	".mp2":  Sampled,
	".mp1":  Sampled,
	".ogg":  Sampled,
}

// Classify returns the class of source from the text after its last dot.
// Matching ignores case.
func Classify(source string) Class {
	dot := strings.LastIndexByte(source, '.')
	if dot <= 0 {
		return Unrecognized
	}
	return extensions[strings.ToLower(source[dot:])]
}

var networkSchemes = []string{"http://", "https://", "ftp://"}

// IsNetwork reports whether source starts with a network scheme, ignoring case
func IsNetwork(source string) bool {
	lower := strings.ToLower(source)
	for _, scheme := range networkSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
