package lexdeploy

import "testing"

func findDatum(data []metricDatum, name, intent string) (metricDatum, bool) {
	for _, d := range data {
		if d.Name == name && d.Dimensions[dimensionIntent] == intent {
			return d, true
		}
	}
	return metricDatum{}, false
}

func TestBuildTestMetrics(t *testing.T) {
	report := &TestReport{
		Failures: 1,
		Results: []TestResult{
			{Intent: "CheckBalance", Success: 3},
			{Intent: "TransferFunds", Success: 0, Fail: 1},
			{Intent: "Untested"},
		},
	}
	data := buildTestMetrics(report, testFull, "dev")

	// Two per tested intent plus the bot-wide failure count and pass rate.
	if len(data) != 6 {
		t.Fatalf("datapoints = %d, want 6", len(data))
	}
	if d, ok := findDatum(data, metricTestsPassed, "CheckBalance"); !ok || d.Value != 3 || d.Unit != unitCount {
		t.Errorf("CheckBalance passed = %+v", d)
	}
	if d, ok := findDatum(data, metricTestsFailed, "TransferFunds"); !ok || d.Value != 1 {
		t.Errorf("TransferFunds failed = %+v", d)
	}
	if _, ok := findDatum(data, metricTestsPassed, "Untested"); ok {
		t.Error("intent without tests should not be published")
	}

	total, ok := findDatum(data, metricTestsFailed, "")
	if !ok || total.Value != 1 {
		t.Errorf("bot-wide failures = %+v", total)
	}
	if total.Dimensions[dimensionBot] != testFull || total.Dimensions[dimensionStage] != "dev" {
		t.Errorf("dimensions = %v", total.Dimensions)
	}
	rate, ok := findDatum(data, metricPassRate, "")
	if !ok || rate.Value != 75 || rate.Unit != unitPercent {
		t.Errorf("pass rate = %+v, want 75 Percent", rate)
	}
}

func TestBuildTestMetrics_NoTests(t *testing.T) {
	data := buildTestMetrics(&TestReport{Results: []TestResult{{Intent: "Greet"}}}, testFull, "dev")
	if len(data) != 1 || data[0].Name != metricTestsFailed || data[0].Value != 0 {
		t.Errorf("data = %+v, want only a zero failure count", data)
	}
}

func TestWithDimension_DoesNotMutateBase(t *testing.T) {
	base := map[string]string{dimensionBot: testFull}
	dims := withDimension(base, dimensionIntent, "Greet")
	if dims[dimensionIntent] != "Greet" || dims[dimensionBot] != testFull {
		t.Errorf("dims = %v", dims)
	}
	if _, ok := base[dimensionIntent]; ok {
		t.Error("base map was mutated")
	}
}

func TestPublishTestMetrics_SkippedWithoutNamespace(t *testing.T) {
	backend := newSimulatedBackend(testRegion, testAccount)
	run := newTestRun(backend, testBot(), testEnv())
	run.publishTestMetrics(t.Context(), &TestReport{})
	if n := backend.callCount("PutMetrics"); n != 0 {
		t.Errorf("PutMetrics calls = %d, want 0", n)
	}
}
