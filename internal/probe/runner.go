package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corex-retail/sales-forecast/internal/domain/forecast"
	"github.com/corex-retail/sales-forecast/internal/domain/types"
	"github.com/corex-retail/sales-forecast/pkg/logger"
)

// Run executes the complete probe against cfg.BaseURL. The returned report
// is populated as far as the run got, even when an error is returned.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg.normalize()
	if len(cfg.Features) == 0 {
		cfg.Features = forecast.SmokeVector.Slice()
	}
	log := logger.Named("probe")
	client := newHTTPClient(cfg.Timeout)
	report := &Report{StartTime: time.Now(), Predictions: make(map[float64]int)}
	defer func() { report.Duration = time.Since(report.StartTime) }()

	log.Info(ctx, "starting forecast probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()))

	// Step 1: liveness
	health, err := checkHealth(ctx, client, cfg.BaseURL)
	if err != nil {
		return report, err
	}
	report.Health = health
	if !health.ModelLoaded {
		return report, ErrModelNotLoaded
	}

	// Step 2: fixture self-test
	selfTest, err := runSelfTest(ctx, client, cfg.BaseURL)
	if err != nil {
		return report, err
	}
	report.SelfTest = &selfTest

	// Step 3: concurrent identical predictions
	submitPredictions(ctx, client, cfg, report, log)

	// Step 4: invalid inputs must be rejected with the right kind
	report.Rejections = runRejections(ctx, client, cfg.BaseURL)

	if err := verify(report); err != nil {
		log.Warn(ctx, "probe verification failed", logger.Error(err))
		return report, err
	}
	log.Info(ctx, "probe completed successfully")
	return report, nil
}

func checkHealth(ctx context.Context, client *HTTPClient, baseURL string) (types.HealthStatus, error) {
	var health types.HealthStatus
	resp, err := client.Get(ctx, baseURL+"/health")
	if err != nil {
		return health, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return health, fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	if err := readJSON(resp, &health); err != nil {
		return health, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return health, nil
}

func runSelfTest(ctx context.Context, client *HTTPClient, baseURL string) (types.SelfTestReport, error) {
	var rep types.SelfTestReport
	resp, err := client.Get(ctx, baseURL+"/test_prediction")
	if err != nil {
		return rep, fmt.Errorf("self-test request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = readJSON(resp, &e)
		return rep, fmt.Errorf("self-test returned status %d: %s", resp.StatusCode, e.Error)
	}
	if err := readJSON(resp, &rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// submitPredictions fans cfg.Requests identical calls out over a worker pool.
func submitPredictions(ctx context.Context, client *HTTPClient, cfg Config, report *Report, log logger.Logger) {
	url := cfg.BaseURL + "/predict"
	body := predictRequest{Features: cfg.Features}

	var (
		successful int64
		failed     int64
		mu         sync.Mutex
		wg         sync.WaitGroup
	)
	jobs := make(chan struct{}, cfg.Workers*workerChannelMultiplier)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				v, err := predictOnce(ctx, client, url, body)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Debug(ctx, "prediction failed", logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&successful, 1)
				mu.Lock()
				report.Predictions[v]++
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Requests; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- struct{}{}:
			}
		}
	}()
	wg.Wait()

	report.Successful = int(atomic.LoadInt64(&successful))
	report.Failed = int(atomic.LoadInt64(&failed))
	report.Requests = report.Successful + report.Failed
	log.Info(ctx, "predictions submitted",
		logger.Int("successful", report.Successful),
		logger.Int("failed", report.Failed),
		logger.Int("distinct", report.Distinct()))
}

func predictOnce(ctx context.Context, client *HTTPClient, url string, body predictRequest) (float64, error) {
	resp, err := client.Post(ctx, url, body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = readJSON(resp, &e)
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}
	var out predictResponse
	if err := readJSON(resp, &out); err != nil {
		return 0, err
	}
	if len(out.Prediction) != 1 {
		return 0, fmt.Errorf("expected one prediction, got %d", len(out.Prediction))
	}
	return out.Prediction[0], nil
}

// rejection describes one invalid request and the error it must produce.
type rejection struct {
	name string
	body string
	kind forecast.Kind
}

var rejections = []rejection{
	{"short feature list", `{"features":[1,2,3]}`, forecast.KindInvalidFeatureCount},
	{"missing features", `{}`, forecast.KindInvalidFeatureCount},
	{"non-numeric feature", `{"features":[12,"abc",1,0,6]}`, forecast.KindInvalidFeatureType},
	{"malformed body", `{"features":`, forecast.KindInvalidRequest},
}

func runRejections(ctx context.Context, client *HTTPClient, baseURL string) []RejectionCheck {
	out := make([]RejectionCheck, 0, len(rejections))
	for _, rj := range rejections {
		check := RejectionCheck{Name: rj.name, WantStatus: http.StatusBadRequest, WantCode: string(rj.kind)}
		resp, err := client.PostRaw(ctx, baseURL+"/predict", []byte(rj.body))
		if err == nil {
			check.Status = resp.StatusCode
			var e errorResponse
			if readJSON(resp, &e) == nil {
				check.Code = e.Code
			}
		}
		check.Passed = check.Status == check.WantStatus && check.Code == check.WantCode
		out = append(out, check)
	}
	return out
}

func verify(r *Report) error {
	var problems []string
	if r.SelfTest != nil && !r.SelfTest.ModelWorking {
		problems = append(problems, "self-test reports model not working")
	}
	if r.Failed > 0 {
		problems = append(problems, fmt.Sprintf("%d predictions failed", r.Failed))
	}
	if r.Distinct() > 1 {
		problems = append(problems, fmt.Sprintf("identical inputs produced %d distinct predictions", r.Distinct()))
	}
	for _, c := range r.Rejections {
		if !c.Passed {
			problems = append(problems, fmt.Sprintf("%s: got %d %q, want %d %q",
				c.Name, c.Status, c.Code, c.WantStatus, c.WantCode))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrVerification, strings.Join(problems, "; "))
	}
	return nil
}

// PrintReport writes a human readable summary of r.
func PrintReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Health:        %s (model_loaded=%t)\n", r.Health.Status, r.Health.ModelLoaded)
	if r.SelfTest != nil {
		fmt.Fprintf(w, "Self-test:     %s (model_working=%t)\n", r.SelfTest.SuccessRate, r.SelfTest.ModelWorking)
	}
	fmt.Fprintf(w, "Predictions:   %d ok, %d failed, %d distinct\n", r.Successful, r.Failed, r.Distinct())
	for v, n := range r.Predictions {
		fmt.Fprintf(w, "  %.4f x%d\n", v, n)
	}
	for _, c := range r.Rejections {
		mark := "ok"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "Reject %-21s %-4s (%d %s)\n", c.Name+":", mark, c.Status, c.Code)
	}
	if r.Requests > 0 && r.Duration > 0 {
		rate := float64(r.Requests) / r.Duration.Seconds()
		fmt.Fprintf(w, "Duration:      %s (%.1f req/s)\n", r.Duration.Round(time.Millisecond), rate)
	}
}
