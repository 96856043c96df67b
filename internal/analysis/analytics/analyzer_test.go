package analytics

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

func msgAt(content string, at string) user.Message {
	ts, err := time.Parse(time.RFC3339, at)
	if err != nil {
		panic(err)
	}
	return user.Message{ID: content, Content: content, CreatedAt: ts}
}

func TestAnalyzeLoveAndHate(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("I love this!", "2024-05-01T10:00:00Z"),
		msgAt("I hate that.", "2024-05-01T11:00:00Z"),
	})

	s := report.Sentiment
	if s.Positive != 1 || s.Negative != 1 || s.Neutral != 0 {
		t.Fatalf("unexpected sentiment counts: %+v", s)
	}
	if s.Overall != Neutral {
		t.Fatalf("expected tied overall to be neutral, got %s", s.Overall)
	}
	if report.Summary.ExclamationRatio != 50 {
		t.Fatalf("expected exclamation ratio 50, got %d", report.Summary.ExclamationRatio)
	}
	if report.Summary.QuestionRatio != 0 {
		t.Fatalf("expected question ratio 0, got %d", report.Summary.QuestionRatio)
	}
	if report.Summary.TotalMessages != 2 {
		t.Fatalf("expected 2 messages, got %d", report.Summary.TotalMessages)
	}
}

func TestAnalyzeEmptyReturnsPlaceholders(t *testing.T) {
	for name, input := range map[string][]user.Message{"nil": nil, "empty": {}} {
		report := Analyze(input)

		if report.Summary != (Summary{}) {
			t.Fatalf("%s: expected zero summary, got %+v", name, report.Summary)
		}
		if report.Sentiment.Overall != Neutral {
			t.Fatalf("%s: expected neutral overall, got %s", name, report.Sentiment.Overall)
		}
		if report.Emotions.Dominant != NoEmotion {
			t.Fatalf("%s: expected neutral dominant emotion, got %s", name, report.Emotions.Dominant)
		}
		if report.Timing.PeakDay != NoPeakDay || report.Timing.PeakHour != 0 {
			t.Fatalf("%s: unexpected peak placeholders: %+v", name, report.Timing)
		}

		raw, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		body := string(raw)
		for _, want := range []string{`"topics":{}`, `"hourly":{}`, `"sentimentOverTime":[]`, `"peakDay":"No data"`} {
			if !strings.Contains(body, want) {
				t.Fatalf("%s: expected %s in %s", name, want, body)
			}
		}
	}
}

func TestAnalyzeCountsAndRatios(t *testing.T) {
	messages := []user.Message{
		msgAt("you are awesome and sweet", "2024-01-01T08:00:00Z"),
		msgAt("why so boring ?", "2024-01-01T09:00:00Z"),
		msgAt("just saying hi", "2024-01-02T09:30:00Z"),
		msgAt("great great terrible!", "2024-01-03T20:00:00Z"),
		msgAt("what's your favourite café?", "2024-01-04T21:00:00Z"),
	}
	report := Analyze(messages)

	s := report.Sentiment
	if sum := s.Positive + s.Negative + s.Neutral; sum != len(messages) {
		t.Fatalf("sentiment counts sum to %d, want %d", sum, len(messages))
	}
	if s.Positive != 2 || s.Negative != 1 || s.Neutral != 2 {
		t.Fatalf("unexpected sentiment counts: %+v", s)
	}
	if s.Overall != Neutral {
		t.Fatalf("expected neutral overall on positive/neutral tie, got %s", s.Overall)
	}

	total := 0
	for _, m := range messages {
		total += utf8.RuneCountInString(m.Content)
	}
	avg := report.Summary.AverageLength
	if diff := avg*len(messages) - total; diff < -len(messages) || diff > len(messages) {
		t.Fatalf("average length %d inconsistent with total %d", avg, total)
	}

	for name, ratio := range map[string]int{
		"question":    report.Summary.QuestionRatio,
		"exclamation": report.Summary.ExclamationRatio,
	} {
		if ratio < 0 || ratio > 100 {
			t.Fatalf("%s ratio out of range: %d", name, ratio)
		}
	}
	if report.Summary.QuestionRatio != 40 {
		t.Fatalf("expected question ratio 40, got %d", report.Summary.QuestionRatio)
	}
}

func TestAnalyzeOverallPicksClearWinner(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("love it", "2024-01-01T08:00:00Z"),
		msgAt("so good", "2024-01-01T08:00:00Z"),
		msgAt("bad day", "2024-01-01T08:00:00Z"),
	})
	if report.Sentiment.Overall != Positive {
		t.Fatalf("expected positive overall, got %s", report.Sentiment.Overall)
	}
}

func TestAverageLengthRoundsHalfUp(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("abcde", "2024-01-01T08:00:00Z"),
		msgAt("abcdefghij", "2024-01-01T08:00:00Z"),
	})
	if report.Summary.AverageLength != 8 {
		t.Fatalf("expected average length 8, got %d", report.Summary.AverageLength)
	}
}

func TestTrendSortedForAnyOrder(t *testing.T) {
	messages := []user.Message{
		msgAt("love it", "2024-03-02T08:00:00Z"),
		msgAt("hate it", "2024-01-15T08:00:00Z"),
		msgAt("meh", "2024-03-01T08:00:00Z"),
		msgAt("nice", "2024-01-15T18:00:00Z"),
	}
	reversed := make([]user.Message, len(messages))
	for i, m := range messages {
		reversed[len(messages)-1-i] = m
	}

	for _, input := range [][]user.Message{messages, reversed} {
		trend := Analyze(input).Trends.SentimentOverTime
		if len(trend) != 3 {
			t.Fatalf("expected 3 trend points, got %d", len(trend))
		}
		for i := 1; i < len(trend); i++ {
			if trend[i-1].Date > trend[i].Date {
				t.Fatalf("trend not sorted: %+v", trend)
			}
		}
		first := trend[0]
		if first.Date != "2024-01-15" || first.Positive != 1 || first.Negative != 1 {
			t.Fatalf("unexpected first trend point: %+v", first)
		}
	}
}

func TestTimingPeakTieUsesFirstSeen(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("one", "2024-01-01T15:00:00Z"),
		msgAt("two", "2024-01-02T10:00:00Z"),
	})
	if report.Timing.PeakHour != 15 {
		t.Fatalf("expected first-seen peak hour 15, got %d", report.Timing.PeakHour)
	}
	if report.Timing.PeakDay != "Monday" {
		t.Fatalf("expected first-seen peak day Monday, got %s", report.Timing.PeakDay)
	}

	report = Analyze([]user.Message{
		msgAt("one", "2024-01-01T15:00:00Z"),
		msgAt("two", "2024-01-02T10:00:00Z"),
		msgAt("three", "2024-01-09T10:30:00Z"),
	})
	if report.Timing.PeakHour != 10 || report.Timing.PeakDay != "Tuesday" {
		t.Fatalf("unexpected peaks: hour=%d day=%s", report.Timing.PeakHour, report.Timing.PeakDay)
	}
	if report.Timing.ByDate["2024-01-09"] != 1 || report.Timing.ByHour[10] != 2 {
		t.Fatalf("unexpected buckets: %+v", report.Timing)
	}
}

func TestWithLocationShiftsBuckets(t *testing.T) {
	a := New(WithLocation(time.FixedZone("UTC+2", 2*60*60)))
	report := a.Analyze([]user.Message{msgAt("late night", "2024-01-01T23:30:00Z")})

	if report.Timing.PeakHour != 1 {
		t.Fatalf("expected hour 1, got %d", report.Timing.PeakHour)
	}
	if report.Timing.PeakDay != "Tuesday" {
		t.Fatalf("expected Tuesday, got %s", report.Timing.PeakDay)
	}
	if report.Trends.SentimentOverTime[0].Date != "2024-01-02" {
		t.Fatalf("expected shifted date, got %s", report.Trends.SentimentOverTime[0].Date)
	}
}

func TestDetectEmotion(t *testing.T) {
	cases := []struct {
		text string
		want Emotion
	}{
		{"I am so happy today", Joy},
		{"wow that is disgusting", Surprise},
		{"zzz xyz", NoEmotion},
		{"", NoEmotion},
	}
	for _, tc := range cases {
		if got := DetectEmotion(tc.text); got != tc.want {
			t.Fatalf("DetectEmotion(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestAnalyzeEmotionTotals(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("I am so happy today", "2024-01-01T08:00:00Z"),
		msgAt("happy happy", "2024-01-01T09:00:00Z"),
		msgAt("zzz", "2024-01-01T10:00:00Z"),
	})
	if report.Emotions.Joy != 2 {
		t.Fatalf("expected 2 joyful messages, got %d", report.Emotions.Joy)
	}
	if report.Emotions.Dominant != Joy {
		t.Fatalf("expected joy dominant, got %s", report.Emotions.Dominant)
	}
	if report.Emotions.Scores[Joy] != 10.5 || report.Emotions.Scores[Sadness] != 5.5 {
		t.Fatalf("unexpected summed scores: %v", report.Emotions.Scores)
	}
}

func TestScoreEmotionsWeights(t *testing.T) {
	cases := []struct {
		text string
		want map[Emotion]float64
	}{
		// exact keyword only
		{"gross", map[Emotion]float64{Disgust: 1}},
		// keyword inside a longer token
		{"grossly", map[Emotion]float64{Disgust: 0.5}},
		// an exact hit is not also counted as a partial one
		{"gross grossly", map[Emotion]float64{Disgust: 1}},
		// exact "sadness" plus "sad" found inside it
		{"sadness", map[Emotion]float64{Sadness: 1.5}},
		// short tokens count as fragments of longer keywords
		{"ad", map[Emotion]float64{Joy: 0.5, Sadness: 1, Anger: 0.5, Fear: 0.5}},
		{"unhappy", map[Emotion]float64{Joy: 0.5, Sadness: 1}},
	}
	for _, tc := range cases {
		got := scoreEmotions(tokenize(tc.text))
		for _, e := range emotionOrder {
			if got[e] != tc.want[e] {
				t.Fatalf("scoreEmotions(%q)[%s] = %v, want %v (all: %v)", tc.text, e, got[e], tc.want[e], got)
			}
		}
	}
}

func TestDetectEmotionCountsShortFragments(t *testing.T) {
	cases := map[string]Emotion{
		"i miss u":    Joy,
		"so mad at u": Joy,
		"I am scared": Joy,
		"ad":          Sadness,
		"vi":          Anger,
	}
	for text, want := range cases {
		if got := DetectEmotion(text); got != want {
			t.Fatalf("DetectEmotion(%q) = %s, want %s", text, got, want)
		}
	}
}

func TestAnalyzeReportsFractionalScores(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("grossly", "2024-01-01T08:00:00Z"),
		msgAt("gross", "2024-01-01T09:00:00Z"),
	})
	if report.Emotions.Scores[Disgust] != 1.5 {
		t.Fatalf("expected disgust score 1.5, got %v", report.Emotions.Scores[Disgust])
	}
	if report.Emotions.Disgust != 2 || report.Emotions.Dominant != Disgust {
		t.Fatalf("unexpected emotion summary: %+v", report.Emotions)
	}
}

func TestTopicsAreAdditive(t *testing.T) {
	report := Analyze([]user.Message{
		msgAt("my boss moved the deadline", "2024-01-01T08:00:00Z"),
		msgAt("love my new laptop", "2024-01-01T08:00:00Z"),
		msgAt("the team shipped the app", "2024-01-01T08:00:00Z"),
		msgAt("nothing here", "2024-01-01T08:00:00Z"),
	})

	want := map[string]int{"work": 2, "relationships": 1, "technology": 2}
	if len(report.Topics) != len(want) {
		t.Fatalf("unexpected topics: %+v", report.Topics)
	}
	for topic, n := range want {
		if report.Topics[topic] != n {
			t.Fatalf("topic %s = %d, want %d", topic, report.Topics[topic], n)
		}
	}
	if got := ExtractTopics("gym and yoga every day"); len(got) != 1 || got[0] != "health" {
		t.Fatalf("unexpected topics for health text: %v", got)
	}
}

func TestClassifySentimentIgnoresCase(t *testing.T) {
	if got := ClassifySentiment("LOVE Love love bad"); got != Positive {
		t.Fatalf("expected positive, got %s", got)
	}
	if got := ClassifySentiment("good bad"); got != Neutral {
		t.Fatalf("expected neutral on tie, got %s", got)
	}
}
