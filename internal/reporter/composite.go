package reporter

// CompositeReporter fans events out to multiple reporters in order.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a reporter that forwards to all given reporters.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) RunStarted(s RunSummary) {
	for _, r := range c.reporters {
		r.RunStarted(s)
	}
}

func (c *CompositeReporter) ResumeApplied(s ResumeSummary) {
	for _, r := range c.reporters {
		r.ResumeApplied(s)
	}
}

func (c *CompositeReporter) FileDone(o FileOutcome) {
	for _, r := range c.reporters {
		r.FileDone(o)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(message string) {
	for _, r := range c.reporters {
		r.Error(message)
	}
}

func (c *CompositeReporter) RunComplete(o RunOutcome) {
	for _, r := range c.reporters {
		r.RunComplete(o)
	}
}
