package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout = 3 * time.Second
	defaultWorkers = 8
)

// Verdict is the moderation outcome attached to a message or comment.
type Verdict struct {
	IsBullying  bool
	Probability float64
	Terms       []string
	// NeedsReview is set when the classifier could not produce a score and
	// the content was flagged without one.
	NeedsReview bool
}

// GateConfig tunes a Gate.
type GateConfig struct {
	// Threshold is the default probability at or above which text is flagged.
	Threshold float64
	// Timeout bounds a single classification including queueing.
	Timeout time.Duration
	// Workers caps concurrent classifier calls.
	Workers int
}

// Gate runs a Classifier on a bounded worker pool and turns its score into
// a Verdict. Callers never block longer than the configured timeout.
type Gate struct {
	classifier Classifier
	lexicon    *Lexicon
	threshold  float64
	timeout    time.Duration
	sem        *semaphore.Weighted
	log        *zerolog.Logger
}

// NewGate builds a gate. lexicon may be nil.
func NewGate(classifier Classifier, lexicon *Lexicon, cfg GateConfig, logger *zerolog.Logger) *Gate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gate{
		classifier: classifier,
		lexicon:    lexicon,
		threshold:  cfg.Threshold,
		timeout:    cfg.Timeout,
		sem:        semaphore.NewWeighted(int64(cfg.Workers)),
		log:        logger,
	}
}

// Threshold returns the gate's default threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Classify scores text against the default threshold.
func (g *Gate) Classify(ctx context.Context, text string) Verdict {
	return g.ClassifyWith(ctx, text, g.threshold)
}

// ClassifyWith scores text against threshold. It never returns an error:
// when the classifier fails or times out the text is flagged for review.
func (g *Gate) ClassifyWith(ctx context.Context, text string, threshold float64) Verdict {
	start := time.Now()
	lexTerms := g.lexicon.Match(text)

	res, err := g.run(ctx, text)
	classifyLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		g.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("classifier unavailable, flagging for review")
		classifications.WithLabelValues("unavailable").Inc()
		return Verdict{IsBullying: true, Terms: lexTerms, NeedsReview: true}
	}

	terms := mergeTerms(res.Terms, lexTerms)
	p := clamp(res.Probability)
	v := Verdict{
		IsBullying:  Decide(p, threshold, terms),
		Probability: p,
		Terms:       terms,
	}
	if v.IsBullying {
		classifications.WithLabelValues("flagged").Inc()
	} else {
		classifications.WithLabelValues("clean").Inc()
	}
	return v
}

// Decide flags text when its probability reaches threshold or any term was found.
func Decide(probability, threshold float64, terms []string) bool {
	return probability >= threshold || len(terms) > 0
}

type outcome struct {
	res Result
	err error
}

func (g *Gate) run(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("%w: acquire slot: %v", ErrClassifierUnavailable, err)
	}

	done := make(chan outcome, 1)
	go func() {
		defer g.sem.Release(1)
		res, err := g.classifier.Classify(ctx, text)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, out.err)
		}
		return out.res, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, ctx.Err())
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
