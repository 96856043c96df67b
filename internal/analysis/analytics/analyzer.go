package analytics

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

// NoPeakDay is reported as the peak day when there is nothing to analyze.
const NoPeakDay = "No data"

// Report is the derived analytics for one user's message list.
type Report struct {
	Sentiment SentimentSummary `json:"sentiment"`
	Emotions  EmotionSummary   `json:"emotions"`
	Topics    map[string]int   `json:"topics"`
	Timing    Timing           `json:"timing"`
	Trends    Trends           `json:"trends"`
	Summary   Summary          `json:"summary"`
}

type SentimentSummary struct {
	Positive int       `json:"positive"`
	Negative int       `json:"negative"`
	Neutral  int       `json:"neutral"`
	Overall  Sentiment `json:"overall"`
}

// EmotionSummary counts messages per dominant emotion. Dominant is chosen from
// Scores, the keyword scores summed over every message.
type EmotionSummary struct {
	Joy      int                 `json:"joy"`
	Sadness  int                 `json:"sadness"`
	Anger    int                 `json:"anger"`
	Surprise int                 `json:"surprise"`
	Fear     int                 `json:"fear"`
	Disgust  int                 `json:"disgust"`
	Dominant Emotion             `json:"dominant"`
	Scores   map[Emotion]float64 `json:"scores"`
}

// Timing holds message histograms. The JSON names are kept from the web
// client: "daily" is keyed by weekday name and "weekly" by calendar date.
type Timing struct {
	ByHour    map[int]int    `json:"hourly"`
	ByWeekday map[string]int `json:"daily"`
	ByDate    map[string]int `json:"weekly"`
	PeakHour  int            `json:"peakHour"`
	PeakDay   string         `json:"peakDay"`
}

type Trends struct {
	SentimentOverTime []DailySentiment `json:"sentimentOverTime"`
}

type DailySentiment struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

type Summary struct {
	TotalMessages    int `json:"totalMessages"`
	AverageLength    int `json:"averageLength"`
	QuestionRatio    int `json:"questionRatio"`
	ExclamationRatio int `json:"exclamationRatio"`
}

// Analyzer computes reports. It holds no state besides the time zone used
// for hour, weekday and date buckets, so one value can serve concurrent callers.
type Analyzer struct {
	loc *time.Location
}

type Option func(*Analyzer)

// WithLocation buckets timestamps in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze is New().Analyze(messages).
func Analyze(messages []user.Message) Report {
	return New().Analyze(messages)
}

// Analyze builds the report for messages. A nil or empty list yields the zero report.
func (a *Analyzer) Analyze(messages []user.Message) Report {
	if len(messages) == 0 {
		return emptyReport()
	}

	report := emptyReport()
	var (
		totalLength  int
		questions    int
		exclamations int
	)

	for _, msg := range messages {
		tokens := tokenize(msg.Content)

		switch classify(tokens) {
		case Positive:
			report.Sentiment.Positive++
		case Negative:
			report.Sentiment.Negative++
		default:
			report.Sentiment.Neutral++
		}

		scores := scoreEmotions(tokens)
		for _, e := range emotionOrder {
			report.Emotions.Scores[e] += scores[e]
		}
		report.Emotions.increment(dominant(scores))

		for _, topic := range topics(tokens) {
			report.Topics[topic]++
		}

		totalLength += utf8.RuneCountInString(msg.Content)
		if strings.Contains(msg.Content, "?") {
			questions++
		}
		if strings.Contains(msg.Content, "!") {
			exclamations++
		}
	}

	report.Sentiment.Overall = overall(report.Sentiment)
	report.Emotions.Dominant = dominant(report.Emotions.Scores)
	report.Timing = a.timing(messages)
	report.Trends.SentimentOverTime = a.trend(messages)

	n := len(messages)
	report.Summary = Summary{
		TotalMessages:    n,
		AverageLength:    roundDiv(totalLength, n),
		QuestionRatio:    percent(questions, n),
		ExclamationRatio: percent(exclamations, n),
	}
	return report
}

// ClassifySentiment labels a single text by counting positive and negative keywords.
func ClassifySentiment(text string) Sentiment {
	return classify(tokenize(text))
}

// DetectEmotion returns the highest scoring emotion of text, or NoEmotion.
func DetectEmotion(text string) Emotion {
	return dominant(scoreEmotions(tokenize(text)))
}

// ExtractTopics returns the topics whose keywords appear as whole tokens in text.
func ExtractTopics(text string) []string {
	return topics(tokenize(text))
}

func emptyReport() Report {
	scores := make(map[Emotion]float64, len(emotionOrder))
	for _, e := range emotionOrder {
		scores[e] = 0
	}
	return Report{
		Sentiment: SentimentSummary{Overall: Neutral},
		Emotions:  EmotionSummary{Dominant: NoEmotion, Scores: scores},
		Topics:    map[string]int{},
		Timing: Timing{
			ByHour:    map[int]int{},
			ByWeekday: map[string]int{},
			ByDate:    map[string]int{},
			PeakDay:   NoPeakDay,
		},
		Trends: Trends{SentimentOverTime: []DailySentiment{}},
	}
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func classify(tokens []string) Sentiment {
	var pos, neg int
	for _, tok := range tokens {
		if positiveWords.has(tok) {
			pos++
		}
		if negativeWords.has(tok) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return Positive
	case neg > pos:
		return Negative
	default:
		return Neutral
	}
}

// overall picks the most frequent class; a shared maximum means no clear lean.
func overall(s SentimentSummary) Sentiment {
	counts := []struct {
		label Sentiment
		n     int
	}{{Positive, s.Positive}, {Negative, s.Negative}, {Neutral, s.Neutral}}

	best, ties := counts[0], 0
	for _, c := range counts[1:] {
		switch {
		case c.n > best.n:
			best, ties = c, 0
		case c.n == best.n:
			ties++
		}
	}
	if ties > 0 {
		return Neutral
	}
	return best.label
}

// scoreEmotions gives one point per token equal to a keyword and half a point
// per keyword that no token equals but some token contains or is contained in.
func scoreEmotions(tokens []string) map[Emotion]float64 {
	scores := make(map[Emotion]float64, len(emotionOrder))
	for _, e := range emotionOrder {
		keywords := emotionKeywords[e]

		var exact, partial int
		for _, tok := range tokens {
			for _, kw := range keywords {
				if tok == kw {
					exact++
					break
				}
			}
		}
		for _, kw := range keywords {
			if partialMatch(kw, tokens) {
				partial++
			}
		}
		scores[e] = float64(exact) + 0.5*float64(partial)
	}
	return scores
}

func partialMatch(keyword string, tokens []string) bool {
	found := false
	for _, tok := range tokens {
		if tok == keyword {
			return false
		}
		if strings.Contains(tok, keyword) || strings.Contains(keyword, tok) {
			found = true
		}
	}
	return found
}

// dominant returns the first emotion in declared order with the highest positive score.
func dominant(scores map[Emotion]float64) Emotion {
	best, bestScore := NoEmotion, 0.0
	for _, e := range emotionOrder {
		if scores[e] > bestScore {
			best, bestScore = e, scores[e]
		}
	}
	return best
}

func (s *EmotionSummary) increment(e Emotion) {
	switch e {
	case Joy:
		s.Joy++
	case Sadness:
		s.Sadness++
	case Anger:
		s.Anger++
	case Surprise:
		s.Surprise++
	case Fear:
		s.Fear++
	case Disgust:
		s.Disgust++
	}
}

func topics(tokens []string) []string {
	var found []string
	for _, topic := range topicOrder {
		keywords := topicKeywords[topic]
		for _, tok := range tokens {
			if keywords.has(tok) {
				found = append(found, topic)
				break
			}
		}
	}
	return found
}

func (a *Analyzer) timing(messages []user.Message) Timing {
	t := emptyReport().Timing

	var hourOrder []int
	var dayOrder []string
	for _, msg := range messages {
		at := msg.CreatedAt.In(a.loc)
		hour := at.Hour()
		day := at.Weekday().String()

		if _, seen := t.ByHour[hour]; !seen {
			hourOrder = append(hourOrder, hour)
		}
		if _, seen := t.ByWeekday[day]; !seen {
			dayOrder = append(dayOrder, day)
		}
		t.ByHour[hour]++
		t.ByWeekday[day]++
		t.ByDate[at.Format(time.DateOnly)]++
	}

	for i, hour := range hourOrder {
		if i == 0 || t.ByHour[hour] > t.ByHour[t.PeakHour] {
			t.PeakHour = hour
		}
	}
	for i, day := range dayOrder {
		if i == 0 || t.ByWeekday[day] > t.ByWeekday[t.PeakDay] {
			t.PeakDay = day
		}
	}
	return t
}

func (a *Analyzer) trend(messages []user.Message) []DailySentiment {
	byDate := make(map[string]*DailySentiment)
	for _, msg := range messages {
		date := msg.CreatedAt.In(a.loc).Format(time.DateOnly)
		day, ok := byDate[date]
		if !ok {
			day = &DailySentiment{Date: date}
			byDate[date] = day
		}
		switch ClassifySentiment(msg.Content) {
		case Positive:
			day.Positive++
		case Negative:
			day.Negative++
		default:
			day.Neutral++
		}
	}

	out := make([]DailySentiment, 0, len(byDate))
	for _, day := range byDate {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func roundDiv(num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den)))
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
