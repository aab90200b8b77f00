package chunker

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	// DefaultEncoding is the BPE encoding used by the gpt-4o family.
	DefaultEncoding = "cl100k_base"

	// charsPerToken is the fallback heuristic for estimating tokens.
	charsPerToken = 4
)

// Estimator returns a non-negative size cost for a piece of text. Costs must
// be deterministic; the splitter sums per-line costs against a budget.
type Estimator interface {
	Estimate(text string) int
}

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(text string) int

func (f EstimatorFunc) Estimate(text string) int { return f(text) }

// HeuristicEstimator approximates tokens as ceil(len/4).
type HeuristicEstimator struct{}

func (HeuristicEstimator) Estimate(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TiktokenEstimator counts BPE tokens with an offline-loaded encoding.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

var loaderOnce sync.Once

// NewTiktokenEstimator loads the named encoding from the embedded BPE tables.
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}

// DefaultEstimator returns the tiktoken estimator, or the heuristic when the
// encoding cannot be loaded.
func DefaultEstimator() Estimator {
	est, err := NewTiktokenEstimator(DefaultEncoding)
	if err != nil {
		return HeuristicEstimator{}
	}
	return est
}
