package analytics

// Sentiment is the coarse polarity of a message.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Emotion names one of the tracked emotion categories.
type Emotion string

const (
	Joy      Emotion = "joy"
	Sadness  Emotion = "sadness"
	Anger    Emotion = "anger"
	Surprise Emotion = "surprise"
	Fear     Emotion = "fear"
	Disgust  Emotion = "disgust"

	NoEmotion Emotion = "neutral"
)

// emotionOrder fixes iteration and tie-break order.
var emotionOrder = []Emotion{Joy, Sadness, Anger, Surprise, Fear, Disgust}

// topicOrder fixes iteration order of topic tagging.
var topicOrder = []string{"relationships", "work", "technology", "health"}

var positiveWords = newWordSet(
	"love", "great", "amazing", "wonderful", "fantastic", "awesome", "beautiful",
	"happy", "joy", "excited", "perfect", "brilliant", "excellent", "good", "nice",
	"sweet", "cute", "adorable", "magical", "inspiring", "motivating",
	"positive", "uplifting", "cheerful", "delightful", "pleased", "satisfied",
)

var negativeWords = newWordSet(
	"hate", "terrible", "awful", "horrible", "bad", "sad", "angry", "frustrated",
	"disappointed", "upset", "worried", "scared", "afraid", "anxious", "stressed",
	"depressed", "lonely", "hurt", "pain", "suffering", "miserable", "unhappy",
	"negative", "disgusting", "annoying", "irritating", "boring", "tired",
)

var emotionKeywords = map[Emotion][]string{
	Joy: dedupe(
		"happy", "joy", "excited", "fun", "laugh", "smile", "great", "wonderful", "amazing",
		"love", "good", "nice", "sweet", "cute", "adorable", "magical", "inspiring",
		"motivating", "positive", "uplifting", "cheerful", "delightful", "pleased",
		"satisfied", "awesome", "fantastic", "perfect", "brilliant", "excellent", "beautiful",
	),
	Sadness: dedupe(
		"sad", "cry", "tears", "lonely", "miss", "depressed", "blue", "down", "hurt", "pain",
		"suffering", "miserable", "unhappy", "negative", "tired", "exhausted", "broken",
		"heartbroken", "disappointed", "sadness", "grief", "sorrow", "melancholy", "gloomy",
		"hopeless", "defeated", "crushed", "devastated",
	),
	Anger: dedupe(
		"angry", "mad", "furious", "rage", "hate", "annoyed", "irritated", "frustrated",
		"upset", "disgusted", "disappointed", "outraged", "livid", "enraged", "hostile",
		"aggressive", "violent", "bitter", "resentful",
	),
	Surprise: dedupe(
		"wow", "omg", "surprised", "shocked", "unexpected", "amazing", "incredible",
		"unbelievable", "astonishing", "stunning", "mind-blowing", "startled", "bewildered",
		"confused", "perplexed", "dumbfounded", "flabbergasted", "stunned", "amazed",
	),
	Fear: dedupe(
		"scared", "afraid", "fear", "worried", "anxious", "terrified", "nervous", "stressed",
		"panicked", "frightened", "horrified", "fearful", "apprehensive", "concerned",
		"distressed", "alarmed", "petrified", "dread", "panic",
	),
	Disgust: dedupe(
		"disgusting", "gross", "ew", "yuck", "nasty", "revolting", "sickening", "repulsive",
		"vile", "filthy", "repugnant", "abhorrent", "loathsome", "detestable", "contemptible",
		"despicable", "odious", "abominable",
	),
}

var topicKeywords = map[string]wordSet{
	"relationships": newWordSet(
		"love", "dating", "boyfriend", "girlfriend", "marriage", "relationship", "romance",
		"crush", "heart", "kiss", "hug", "affection", "partner", "spouse", "divorce",
		"breakup", "single", "commitment", "trust", "loyalty",
	),
	"work": newWordSet(
		"job", "work", "career", "office", "boss", "colleague", "meeting", "project",
		"deadline", "promotion", "salary", "interview", "resume", "company", "business",
		"client", "customer", "presentation", "conference", "workplace", "team", "manager",
		"employee", "employer",
	),
	"technology": newWordSet(
		"tech", "computer", "phone", "app", "software", "digital", "internet", "social",
		"media", "website", "programming", "coding", "developer", "startup", "innovation",
		"gadget", "device", "smartphone", "laptop", "tablet", "ai", "artificial",
		"intelligence", "machine", "learning", "data", "cloud", "cybersecurity",
		"blockchain", "crypto", "bitcoin",
	),
	"health": newWordSet(
		"health", "fitness", "exercise", "diet", "sick", "doctor", "medicine", "hospital",
		"clinic", "therapy", "mental", "physical", "wellness", "nutrition", "vitamins",
		"supplements", "workout", "gym", "yoga", "meditation", "stress", "anxiety",
		"depression", "counseling", "recovery", "healing", "symptoms", "diagnosis",
		"treatment",
	),
}

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	set := make(wordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func (s wordSet) has(word string) bool {
	_, ok := s[word]
	return ok
}

func dedupe(words ...string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
