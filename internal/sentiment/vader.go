package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/instalens/internal/models"
)

const vaderThreshold = 0.20

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := tagPattern.ReplaceAllString(string(output), " ")
	plainText = strings.Join(strings.Fields(plainText), " ")

	return RemoveLinks(plainText)
}

// VADERClassifier is the lexicon based classifier. It needs no model files
// and is the default backend.
type VADERClassifier struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVADERClassifier() *VADERClassifier {
	return &VADERClassifier{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Classify maps the compound polarity onto a label with a +/-0.20 dead zone.
// Polar labels score |compound|; neutral scores the neutral proportion.
func (v *VADERClassifier) Classify(_ context.Context, text string) (models.Classification, error) {
	plainText := ConvertMarkdownToText(text)
	sentiment := v.analyzer.PolarityScores(plainText)
	score := sentiment.Compound

	switch {
	case score >= vaderThreshold:
		return models.Classification{Label: string(models.SentimentPositive), Score: math.Abs(score)}, nil
	case score <= -vaderThreshold:
		return models.Classification{Label: string(models.SentimentNegative), Score: math.Abs(score)}, nil
	default:
		return models.Classification{Label: string(models.SentimentNeutral), Score: sentiment.Neutral}, nil
	}
}
