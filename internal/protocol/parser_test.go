package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPhrases(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "JOIN AB1C-DE2F", []string{"JOIN AB1C-DE2F"}},
		{"three", "A;B;C", []string{"A", "B", "C"}},
		{"padded separator", "A ; B", []string{"A", "B"}},
		{"inner whitespace kept", "SAY a  b ;NAME x", []string{"SAY a  b", "NAME x"}},
		{"empty segments kept", "A;;B", []string{"A", "", "B"}},
		{"trailing separator", "A;", []string{"A", ""}},
		{"empty", "", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitPhrases(tt.in))
		})
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"bare words", "JOIN  AB1C-DE2F ", []string{"JOIN", "AB1C-DE2F"}},
		{"single quoted", "NAME 'John Smith'", []string{"NAME", "John Smith"}},
		{"double quoted", `SAY "hello there" now`, []string{"SAY", "hello there", "now"}},
		{"apostrophe inside double quotes", `SAY "it's fine"`, []string{"SAY", "it's fine"}},
		{"two single quoted runs", "SAY 'a' 'b'", []string{"SAY", "a", "b"}},
		{"empty quotes", "NAME ''", []string{"NAME", ""}},
		{"unterminated quote is literal", "NAME 'John Smith", []string{"NAME", "'John", "Smith"}},
		{"quote inside bare word", "SAY don't", []string{"SAY", "don't"}},
		{"tabs and newlines", "SAY\ta\nb", []string{"SAY", "a", "b"}},
		{"empty", "", []string{}},
		{"whitespace only", "  \t ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitWords(tt.in))
		})
	}
}

func TestParse(t *testing.T) {
	cmds := Parse("JOIN AB1C-DE2F ; ; NAME 'Jane Doe';SAY hi all;LEAVE;dance now")
	require.Equal(t, []Command{
		{Verb: VerbJoin, Name: "JOIN", Args: []string{"AB1C-DE2F"}},
		{Verb: VerbName, Name: "NAME", Args: []string{"Jane Doe"}},
		{Verb: VerbSay, Name: "SAY", Args: []string{"hi", "all"}},
		{Verb: VerbLeave, Name: "LEAVE", Args: []string{}},
		{Verb: VerbUnknown, Name: "dance", Args: []string{"now"}},
	}, cmds)
	assert.Equal(t, "hi all", cmds[2].Text())
	assert.Empty(t, cmds[3].Arg(0), "Arg(0) on LEAVE")
}

func TestParseVerbIsCaseSensitive(t *testing.T) {
	assert.Equal(t, VerbUnknown, ParseVerb("join"))
	assert.Equal(t, VerbSay, ParseVerb("SAY"))
}
