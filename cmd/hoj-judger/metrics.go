package main

import (
	"context"
	"fmt"

	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/envexec"
	"github.com/hydrogen-oj/judger/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "hoj_judger"
)

var (
	// 1ms -> 10s
	timeBuckets = []float64{
		0.001, 0.002, 0.005, 0.008, 0.010, 0.025, 0.050, 0.075, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}

	// 4k (1<<12) -> 4g (1<<32)
	memoryBucket = prometheus.ExponentialBuckets(1<<12, 2, 21)
)

// metrics are written in text format to a file after the run, for the
// node exporter textfile collector
type metrics struct {
	registry *prometheus.Registry
	path     string

	execErrorCount prometheus.Counter
	execTimeHist   *prometheus.HistogramVec
	execMemHist    *prometheus.HistogramVec
	caseCount      *prometheus.CounterVec
	judgeCount     *prometheus.CounterVec
	judgeScore     prometheus.Gauge
}

func newMetrics(path string) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		path:     path,
		execErrorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exec_error",
			Help:      "Number of executions returns error",
		}),
		execTimeHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "exec_time_seconds",
			Help:      "Histogram for the running time",
			Buckets:   timeBuckets,
		}, []string{"cause"}),
		execMemHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "exec_memory_bytes",
			Help:      "Histogram for the memory",
			Buckets:   memoryBucket,
		}, []string{"cause"}),
		caseCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "case_total",
			Help:      "Number of judged test cases",
		}, []string{"status"}),
		judgeCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "judge_total",
			Help:      "Number of finished judges",
		}, []string{"status"}),
		judgeScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "judge_score",
			Help:      "Score of the last judge",
		}),
	}
	m.registry.MustRegister(m.execErrorCount, m.execTimeHist, m.execMemHist)
	m.registry.MustRegister(m.caseCount, m.judgeCount, m.judgeScore)
	return m
}

func (m *metrics) execObserve(rt envexec.Result, err error) {
	if err != nil {
		m.execErrorCount.Inc()
		return
	}
	cause := rt.Cause.String()
	m.execTimeHist.WithLabelValues(cause).Observe(rt.Time.Seconds())
	m.execMemHist.WithLabelValues(cause).Observe(float64(rt.Memory))
}

var _ envexec.Executor = &metricsExecutor{}

type metricsExecutor struct {
	envexec.Executor
	m *metrics
}

func (e *metricsExecutor) Execute(ctx context.Context, c *envexec.Cmd) (envexec.Result, error) {
	rt, err := e.Executor.Execute(ctx, c)
	e.m.execObserve(rt, err)
	return rt, err
}

var _ client.Reporter = &metrics{}

func (m *metrics) Compiled(*types.ProgressCompiled) {}

func (m *metrics) Progressed(p *types.ProgressProgressed) {
	m.caseCount.WithLabelValues(p.CaseResult.Status.String()).Inc()
}

// Finished records the result and writes the metrics file
func (m *metrics) Finished(rt *types.JudgeResult) error {
	m.judgeCount.WithLabelValues(rt.Status.String()).Inc()
	m.judgeScore.Set(float64(rt.Score))
	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
