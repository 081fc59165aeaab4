// Package config loads and validates the pipeline configuration.
//
// Configuration lives in a single config.yaml (working directory, or
// ~/.config/darkroom/config.yaml), optionally overridden by DARKROOM_*
// environment variables. Load returns an explicit *Config that callers pass
// into every component; the file's modification time participates in the
// staleness check, so touching it forces a full rebuild.
//
// The package also owns the output-tree layout: every path under
// {output}/metadata and {output}/public_html is computed by a Config method
// so the layout consumed by the template renderer and deploy sync stays in
// one place.
package config
