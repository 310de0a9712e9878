package lexdeploy

import "context"

// CloudWatch unit strings.
const (
	unitCount   = "Count"
	unitPercent = "Percent"
)

// Metric names published for a test run.
const (
	metricTestsPassed = "TestsPassed"
	metricTestsFailed = "TestsFailed"
	metricPassRate    = "TestPassRate"
)

// Dimension names attached to every test metric.
const (
	dimensionBot    = "Bot"
	dimensionStage  = "Stage"
	dimensionIntent = "Intent"
)

// buildTestMetrics turns a test report into CloudWatch data points: pass
// and fail counts per intent, then the bot-wide failure count and pass
// rate. Intents without tests are skipped.
func buildTestMetrics(report *TestReport, fullBotName, stage string) []metricDatum {
	base := map[string]string{
		dimensionBot:   fullBotName,
		dimensionStage: stage,
	}

	var data []metricDatum
	total, passed := 0, 0
	for _, res := range report.Results {
		if res.Success+res.Fail == 0 {
			continue
		}
		total += res.Success + res.Fail
		passed += res.Success

		dims := withDimension(base, dimensionIntent, res.Intent)
		data = append(data,
			metricDatum{Name: metricTestsPassed, Value: float64(res.Success), Unit: unitCount, Dimensions: dims},
			metricDatum{Name: metricTestsFailed, Value: float64(res.Fail), Unit: unitCount, Dimensions: dims},
		)
	}

	data = append(data, metricDatum{
		Name: metricTestsFailed, Value: float64(report.Failures), Unit: unitCount, Dimensions: base,
	})
	if total > 0 {
		data = append(data, metricDatum{
			Name: metricPassRate, Value: 100 * float64(passed) / float64(total), Unit: unitPercent, Dimensions: base,
		})
	}
	return data
}

func withDimension(base map[string]string, key, value string) map[string]string {
	dims := make(map[string]string, len(base)+1)
	for k, v := range base {
		dims[k] = v
	}
	dims[key] = value
	return dims
}

// publishTestMetrics sends the test metrics when a namespace is
// configured. Publication problems never fail the deployment.
func (r *deployment) publishTestMetrics(ctx context.Context, report *TestReport) {
	if r.env.MetricsNamespace == "" || r.clients.metrics == nil {
		return
	}
	data := buildTestMetrics(report, r.fullName, r.env.Stage)
	if err := r.clients.metrics.PutMetrics(ctx, r.env.MetricsNamespace, data); err != nil {
		r.log.Warn("publishing test metrics", "namespace", r.env.MetricsNamespace, "error", err)
		return
	}
	r.log.Info("published test metrics", "namespace", r.env.MetricsNamespace, "datapoints", len(data))
}
