package fuzzy

var soundexCodes = map[byte]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// Soundex returns a simplified four character Soundex code for word.
// Only ASCII letters are coded. A word that does not start with a Latin
// letter has no code and Soundex returns "".
func Soundex(word string) string {
	if word == "" {
		return ""
	}

	first := lower(word[0])
	if first < 'a' || first > 'z' {
		return ""
	}

	code := make([]byte, 1, 4)
	code[0] = first - 'a' + 'A'
	prev := soundexCodes[first]

	for i := 1; i < len(word) && len(code) < 4; i++ {
		c := soundexCodes[lower(word[i])]
		if c != 0 && c != prev {
			code = append(code, c)
		}
		prev = c
	}

	for len(code) < 4 {
		code = append(code, '0')
	}

	return string(code)
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
