// Package configs provides embedded configuration templates for amansearch.
//
// Templates are embedded at build time so `amansearch config init` works
// for source builds and binary releases alike.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/amansearch/config.yaml)
//  3. Project config (.amansearch.yaml)
//  4. Environment variables (AMANSEARCH_*, EXA_API_KEY, BRAVE_API_KEY, SEARXNG_URL)
package configs

import _ "embed"

// UserConfigTemplate is written by `amansearch config init` to the user
// config path. It holds machine-wide settings such as API keys and the
// embedding backend.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written by `amansearch config init --project`
// to .amansearch.yaml. It holds settings worth committing with a project,
// such as routing and provider weights.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
