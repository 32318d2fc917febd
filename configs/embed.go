// Package configs provides embedded configuration templates for augment-lite.
//
// The default models.yaml is embedded at build time so every distribution
// (go install, binary release) ships with a working routing table. A file at
// $AUGMENT_DB_DIR/models.yaml overrides the embedded defaults.
package configs

import _ "embed"

// ModelsYAML is the embedded default model routing configuration.
//
//go:embed models.yaml
var ModelsYAML []byte
