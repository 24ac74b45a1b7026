// Package inference provides zero-shot classifier backends for the
// classification port.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"mailsense_server/core/domain"
	"mailsense_server/core/port/out"
	"mailsense_server/pkg/apperr"
	"mailsense_server/pkg/httputil"
	"mailsense_server/pkg/logger"
	"mailsense_server/pkg/metrics"
)

const maxResponseBytes = 1 << 20 // 1 MiB

// rankRequest is the hosted inference request body.
type rankRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters rankParameters `json:"parameters"`
	Options    rankOptions    `json:"options"`
}

type rankParameters struct {
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template,omitempty"`
}

type rankOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// rankResponse is the ranking result: labels sorted by score, descending.
type rankResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// HFClient ranks candidate labels through a hosted zero-shot NLI model.
type HFClient struct {
	url     string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

var _ out.ZeroShotClassifier = (*HFClient)(nil)

// NewHFClient builds a client for the given endpoint and model. The
// shared inference HTTP client allows for cold-model load times;
// timeout bounds each Rank call on top of the caller's context.
func NewHFClient(endpoint, model, apiKey string, timeout time.Duration) *HFClient {
	return &HFClient{
		url:     strings.TrimSuffix(endpoint, "/") + "/models/" + model,
		apiKey:  apiKey,
		client:  httputil.InferenceClient(),
		cb:      newBreaker("inference-api"),
		timeout: timeout,
	}
}

// Rank classifies text against the candidate labels and returns the
// ranking, best first.
func (c *HFClient) Rank(ctx context.Context, text string, candidates []string, hypothesisTemplate string) ([]domain.Prediction, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(rankRequest{
		Inputs: text,
		Parameters: rankParameters{
			CandidateLabels:    candidates,
			HypothesisTemplate: hypothesisTemplate,
		},
		Options: rankOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, apperr.ClassifierUnavailable(err)
	}

	start := time.Now()
	defer func() { metrics.RecordLatency("classifier.rank", time.Since(start)) }()

	var decoded rankResponse
	err = c.execute(func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, callErr := c.client.Do(req)
		if callErr != nil {
			return callErr
		}
		defer resp.Body.Close()

		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if readErr != nil {
			return readErr
		}
		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode, body: errorSnippet(payload)}
		}
		return json.Unmarshal(payload, &decoded)
	})
	if err != nil {
		return nil, apperr.ClassifierUnavailable(err)
	}

	return toPredictions(decoded.Labels, decoded.Scores)
}

// execute wraps one inference call with circuit breaker protection.
// Server errors and rate limiting trip the breaker; client errors pass
// through without counting against it.
func (c *HFClient) execute(fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if se, ok := err.(*statusError); ok && se.code < 500 && se.code != 429 {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err != nil {
		logger.WithField("state", c.cb.State().String()).WithError(err).Warn("inference call failed")
	}
	return err
}

// statusError carries a non-200 inference response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("inference endpoint returned %d: %s", e.code, e.body)
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
}

// errorSnippet trims a response body for log and error messages.
func errorSnippet(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// toPredictions pairs the ranked labels with their scores.
func toPredictions(labels []string, scores []float64) ([]domain.Prediction, error) {
	if len(labels) == 0 || len(labels) != len(scores) {
		return nil, apperr.ClassifierUnavailable(
			fmt.Errorf("malformed ranking: %d labels, %d scores", len(labels), len(scores)))
	}

	predictions := make([]domain.Prediction, len(labels))
	for i := range labels {
		predictions[i] = domain.Prediction{Label: labels[i], Confidence: scores[i]}
	}
	return predictions, nil
}
