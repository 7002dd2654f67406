package model

import (
	"regexp"
	"sort"
)

var regexCache = map[string]*regexp.Regexp{}

func regexpMatch(pattern, s string) bool {
	re, ok := regexCache[pattern]
	if !ok {
		re = regexp.MustCompile(pattern)
		regexCache[pattern] = re
	}
	return re.MatchString(s)
}

func sortedKeys(m map[string]Switch) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
