package normalize

// defaultContractions maps apostrophe-free contraction forms to their
// expansions. Keys are matched after punctuation removal, so "don't" arrives
// here as "dont".
var defaultContractions = map[string]string{
	"aint":     "am not",
	"arent":    "are not",
	"cant":     "can not",
	"couldnt":  "could not",
	"couldve":  "could have",
	"didnt":    "did not",
	"doesnt":   "does not",
	"dont":     "do not",
	"hadnt":    "had not",
	"hasnt":    "has not",
	"havent":   "have not",
	"hes":      "he is",
	"im":       "i am",
	"isnt":     "is not",
	"ive":      "i have",
	"mightnt":  "might not",
	"mustnt":   "must not",
	"neednt":   "need not",
	"shes":     "she is",
	"shouldnt": "should not",
	"shouldve": "should have",
	"thats":    "that is",
	"theres":   "there is",
	"theyd":    "they would",
	"theyll":   "they will",
	"theyre":   "they are",
	"theyve":   "they have",
	"wasnt":    "was not",
	"weve":     "we have",
	"werent":   "were not",
	"whats":    "what is",
	"wont":     "will not",
	"wouldnt":  "would not",
	"wouldve":  "would have",
	"youd":     "you would",
	"youll":    "you will",
	"youre":    "you are",
	"youve":    "you have",
}
