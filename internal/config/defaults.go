package config

import "time"

// Top-level defaults.
const (
	DefaultDialect                         = "py"
	DefaultFrontend                        = "treesitter"
	DefaultOutDir                          = "bindings"
	DefaultAllowInclusionsFromOtherTargets = true
)

// Clang front-end defaults.
const (
	DefaultClangPath = "clang++"
)

// Pipeline defaults. Zero workers means GOMAXPROCS.
const (
	DefaultPipelineWorkers = 0
	DefaultPipelineTimeout = 2 * time.Minute
)

// Generator defaults.
const (
	DefaultGenerateUnsupported = "skip"
	DefaultGenerateNamespaces  = "flatten"
)

// DefaultGenerateAccess lists the member access levels that are bound.
var DefaultGenerateAccess = []string{"public", "protected", "private"}

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPInsecure = false
)
