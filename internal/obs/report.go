package obs

// Reporter is the error-tracking collaborator. Report is fire-and-forget:
// implementations must never fail in a way that masks the original error.
type Reporter interface {
	Report(err error, context map[string]any)
}

// LogReporter escalates errors to the shared logger. It stands in for an
// external tracker when none is configured.
type LogReporter struct{}

var _ Reporter = LogReporter{}

func (LogReporter) Report(err error, context map[string]any) {
	errorsReported.Inc()
	entry := map[string]any{
		"msg":   "caught error",
		"error": err.Error(),
	}
	for k, v := range context {
		entry[k] = v
	}
	LogEntry("error", entry)
}

// NopReporter discards reports; used in tests.
type NopReporter struct{}

var _ Reporter = NopReporter{}

func (NopReporter) Report(error, map[string]any) {}
