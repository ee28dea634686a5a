// Package config provides typed configuration access for pipeline settings.
//
// # Overview
//
// Config wraps a map[string]any and offers type-safe accessors with
// defaults, so pipeline code never deals with raw type assertions:
//
//	cfg, err := config.FromFile("reportflow.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	timeout := cfg.Duration("provider_timeout", 60*time.Second)
//	maxIter := cfg.Int("max_iterations", 12)
//	providers := cfg.StringSlice("providers", []string{"gemini"})
//
// # Type Coercion
//
// Accessors coerce common YAML/JSON representations: Duration accepts
// "30s" strings or numeric seconds, Int accepts float64 values with no
// fractional part (JSON numbers decode as float64), and StringSlice
// accepts []any holding only strings. Anything else yields the default.
//
// # Nested Sections
//
// Sub returns the Config under a key, which is how per-provider blocks
// are read:
//
//	gemini := cfg.Sub("gemini")
//	model := gemini.String("model", "gemini-2.0-flash")
//
// # Environment References
//
// String values may embed ${VAR} references; they are expanded from the
// environment at load time. Bare $VAR is not expanded.
//
// # Thread Safety
//
// Config is an immutable view over its map. Reads are safe from multiple
// goroutines as long as nothing mutates the map returned by Raw.
package config
