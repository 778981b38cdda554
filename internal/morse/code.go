// internal/morse/code.go
// Package morse implements the Morse signal codec: text transcoding, duration
// classification, the transmit state machine and the receive pipeline that
// turns timed line pulses back into characters and words.
package morse

import "strings"

// Signal is a single Morse element.
type Signal int

const (
	Dot Signal = iota
	Dash
)

func (s Signal) String() string {
	if s == Dash {
		return "-"
	}
	return "."
}

const (
	// WordSeparator is the token emitted between words in a Morse string.
	WordSeparator = "/"
	// UnknownMorse is the sequence substituted for characters the code table
	// does not cover (the "!" error marker).
	UnknownMorse = "-.-.--"
	// UnknownChar is substituted for token sequences that do not decode.
	UnknownChar = "?"
)

// codeTable maps supported characters to their element sequences. The mapping
// is injective; reverseTable is derived from it at init.
var codeTable = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",

	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",

	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.",
	'!': "-.-.--", '/': "-..-.", '(': "-.--.", ')': "-.--.-",
	'&': ".-...", ':': "---...", ';': "-.-.-.", '=': "-...-",
	'+': ".-.-.", '-': "-....-", '_': "..--.-", '"': ".-..-.",
	'$': "...-..-", '@': ".--.-.",
}

var reverseTable map[string]rune

func init() {
	reverseTable = make(map[string]rune, len(codeTable))
	for char, seq := range codeTable {
		reverseTable[seq] = char
	}
}

// TextToMorse transcodes text into a Morse string: characters become
// dot/dash sequences separated by single spaces, a space in the input becomes
// the word separator. Characters outside the table degrade to UnknownMorse
// rather than failing. Pure function, safe for concurrent use.
func TextToMorse(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToUpper(text)
	parts := make([]string, 0, len(text))
	for _, char := range text {
		switch {
		case char == ' ':
			parts = append(parts, WordSeparator)
		default:
			seq, ok := codeTable[char]
			if !ok {
				seq = UnknownMorse
			}
			parts = append(parts, seq)
		}
	}

	return strings.Join(parts, " ")
}

// MorseToText decodes a space-separated Morse string back into text. The word
// separator decodes to a space and unrecognized sequences decode to
// UnknownChar, so decoding never fails as a whole. Pure function, safe for
// concurrent use.
func MorseToText(morse string) string {
	if morse == "" {
		return ""
	}

	var b strings.Builder
	for _, seq := range strings.Split(morse, " ") {
		switch {
		case seq == WordSeparator:
			b.WriteByte(' ')
		default:
			char, ok := reverseTable[seq]
			if !ok {
				b.WriteString(UnknownChar)
			} else {
				b.WriteRune(char)
			}
		}
	}

	return b.String()
}
