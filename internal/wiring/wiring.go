// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/bom/internal/adapters/classify"
	_ "go.trai.ch/bom/internal/adapters/config"
	_ "go.trai.ch/bom/internal/adapters/extract"
	_ "go.trai.ch/bom/internal/adapters/fs"
	_ "go.trai.ch/bom/internal/adapters/ident"
	_ "go.trai.ch/bom/internal/adapters/logger"
	_ "go.trai.ch/bom/internal/adapters/store"
	_ "go.trai.ch/bom/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/bom/internal/app"
	_ "go.trai.ch/bom/internal/engine/dispatch"
	_ "go.trai.ch/bom/internal/engine/infer"
	_ "go.trai.ch/bom/internal/engine/scanner"
)
