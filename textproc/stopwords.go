package textproc

// Function words dropped from every token stream. English and Ukrainian.
var stopWords = map[string]bool{
	// English
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "in": true,
	"that": true, "have": true, "has": true, "it": true, "its": true, "for": true,
	"not": true, "on": true, "with": true, "as": true, "you": true, "do": true,
	"at": true, "this": true, "but": true, "by": true, "from": true, "or": true,
	"he": true, "she": true, "they": true, "will": true, "what": true, "which": true,

	// Ukrainian
	"і": true, "й": true, "та": true, "в": true, "у": true, "на": true,
	"з": true, "із": true, "зі": true, "до": true, "для": true, "від": true,
	"по": true, "за": true, "про": true, "при": true, "над": true, "під": true,
	"що": true, "як": true, "це": true, "не": true, "але": true, "або": true,
	"чи": true, "же": true, "ж": true, "так": true, "ще": true, "вже": true,
	"бо": true, "які": true, "який": true, "яка": true, "яке": true, "його": true,
	"її": true, "їх": true, "він": true, "вона": true, "воно": true, "вони": true,
}

// IsStopWord reports whether the lowercased word is a stop word.
func IsStopWord(word string) bool {
	return stopWords[word]
}
