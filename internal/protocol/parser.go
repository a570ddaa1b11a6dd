// Package protocol parses the line-based command protocol spoken over game connections.
//
// One inbound text payload holds phrases separated by ';' (optionally padded with whitespace).
// A phrase holds words separated by whitespace; a run enclosed in single quotes, or in double
// quotes, is one word with the quotes stripped. The first word of a phrase names the command.
package protocol

import "regexp"

var (
	phraseSeparator = regexp.MustCompile(`\s*;\s*`)
	// Alternation order is significant: single-quoted, double-quoted, bare word.
	// An unterminated quote fails both quoted branches and ends up inside a bare word.
	wordPattern = regexp.MustCompile(`'([^']*)'|"([^"]*)"|(\S+)`)
)

// SplitPhrases splits text on ';' and the whitespace around it. Empty segments are kept.
func SplitPhrases(text string) []string {
	return phraseSeparator.Split(text, -1)
}

// SplitWords tokenizes a phrase. It never fails; a phrase without words yields an empty slice.
func SplitWords(phrase string) []string {
	matches := wordPattern.FindAllStringSubmatchIndex(phrase, -1)
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		// m holds pairs for the whole match and the three groups; take the first group that took part.
		for g := 1; g <= 3; g++ {
			if start := m[2*g]; start >= 0 {
				words = append(words, phrase[start:m[2*g+1]])
				break
			}
		}
	}
	return words
}

// Parse turns a payload into commands, one per phrase that has at least one word,
// in left-to-right order.
func Parse(text string) []Command {
	var cmds []Command
	for _, phrase := range SplitPhrases(text) {
		words := SplitWords(phrase)
		if len(words) == 0 {
			continue
		}
		cmds = append(cmds, Command{
			Verb: ParseVerb(words[0]),
			Name: words[0],
			Args: words[1:],
		})
	}
	return cmds
}
