package diag

// CountingReporter forwards diagnostics and counts them by severity.
// Counts only grow.
type CountingReporter struct {
	Next     Reporter
	errors   int
	warnings int
}

func (c *CountingReporter) Report(code Code, sev Severity, primary Pos, msg string, notes []Note) {
	switch {
	case sev.Fails():
		c.errors++
	case sev == SevWarning:
		c.warnings++
	}
	if c.Next != nil {
		c.Next.Report(code, sev, primary, msg, notes)
	}
}

// Errors returns the number of error diagnostics seen.
func (c *CountingReporter) Errors() int { return c.errors }

// Warnings returns the number of warning diagnostics seen.
func (c *CountingReporter) Warnings() int { return c.warnings }
