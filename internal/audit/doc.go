// Package audit holds the field-audit domain model: auditors, captured
// observations, generated reports and their findings, and audit plans.
//
// Reports keep a positional link between Observations[i] and Findings[i];
// annex citations ("1.2" = finding 1, photo 2) are derived from those
// indexes rather than from any stored foreign key.
package audit
