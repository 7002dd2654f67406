// Package raceerr defines the typed error kinds dispatched by the analyzer
// pipeline and their fatality, per the disposition table: ParseErrors on a
// single label fall back to an Empty transition and are logged, not fatal;
// ParseErrors on a whole trace string, AnalyzerErrors, EngineErrors, and
// OracleErrors abort the run (or, for AnalyzerError, just the one trace);
// ModelErrors abort at load time, before any of the above run.
package raceerr

import "fmt"

// ParseError indicates a transition label or trace string could not be
// parsed into the expected grammar.
type ParseError struct{ msg string }

func NewParseError(format string, args ...interface{}) *ParseError {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

func (e *ParseError) Error() string { return "parse error: " + e.msg }

// AnalyzerError indicates the trace analyzer encountered a trace it could
// not process (malformed tree, missing metadata). Fatal for that trace only.
type AnalyzerError struct{ msg string }

func NewAnalyzerError(format string, args ...interface{}) *AnalyzerError {
	return &AnalyzerError{msg: fmt.Sprintf(format, args...)}
}

func (e *AnalyzerError) Error() string { return "analyzer error: " + e.msg }

// EngineError indicates the term-rewriting engine collaborator failed or
// returned an unparseable response. Fatal for the whole run.
type EngineError struct{ msg string }

func NewEngineError(format string, args ...interface{}) *EngineError {
	return &EngineError{msg: fmt.Sprintf(format, args...)}
}

func (e *EngineError) Error() string { return "engine error: " + e.msg }

// OracleError indicates the policy-equivalence oracle returned an
// undecidable or malformed answer. Fatal for the whole run.
type OracleError struct{ msg string }

func NewOracleError(format string, args ...interface{}) *OracleError {
	return &OracleError{msg: fmt.Sprintf(format, args...)}
}

func (e *OracleError) Error() string { return "oracle error: " + e.msg }

// ModelError indicates the loaded network model or safety-property set
// failed validation. Fatal at load time, before generation/analysis starts.
type ModelError struct{ msg string }

func NewModelError(format string, args ...interface{}) *ModelError {
	return &ModelError{msg: fmt.Sprintf(format, args...)}
}

func (e *ModelError) Error() string { return "model error: " + e.msg }

// CLIError indicates invalid command-line flags or arguments. Fatal at
// startup, before model loading.
type CLIError struct{ msg string }

func NewCLIError(format string, args ...interface{}) *CLIError {
	return &CLIError{msg: fmt.Sprintf(format, args...)}
}

func (e *CLIError) Error() string { return "cli error: " + e.msg }
