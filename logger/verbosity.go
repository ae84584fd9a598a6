package logger

import "go.uber.org/zap/zapcore"

// Verbosity levels for the CLI -v flag count.
const (
	VerbosityDefault = 0 // No flags: configured level
	VerbosityInfo    = 1 // -v: progress, batch outcomes
	VerbosityDebug   = 2 // -vv: rule matches, prompts, retry transitions
)

// EffectiveLevel combines the configured level with the -v count. Verbosity
// only ever lowers the threshold.
func EffectiveLevel(configured zapcore.Level, verbosity int) zapcore.Level {
	var fromFlags zapcore.Level
	switch {
	case verbosity <= VerbosityDefault:
		return configured
	case verbosity == VerbosityInfo:
		fromFlags = zapcore.InfoLevel
	default:
		fromFlags = zapcore.DebugLevel
	}
	if fromFlags < configured {
		return fromFlags
	}
	return configured
}
