package utils

import "strings"

// UniqueStrings returns the slice without duplicates, keeping the order in
// which each value was first seen. Empty strings are dropped.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool)
	uniqueSlice := []string{}
	for _, entry := range slice {
		if entry == "" {
			continue
		}
		if _, value := keys[entry]; !value {
			keys[entry] = true
			uniqueSlice = append(uniqueSlice, entry)
		}
	}
	return uniqueSlice
}

// bidiMarks are the invisible direction marks Amazon sprinkles into
// detail tables.
var bidiMarks = strings.NewReplacer("\u200e", "", "\u200f", "", "\u00a0", " ")

// CollapseSpace strips direction marks and squeezes every whitespace run
// into a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(bidiMarks.Replace(s)), " ")
}

// NonEmptyLines splits text into trimmed lines, dropping blank ones.
func NonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
