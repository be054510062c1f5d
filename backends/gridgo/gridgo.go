// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

// Package gridgo implements the hierarchical-parallel LoopKit backend: a
// grid of blocks, each holding warps of lanes, all executing the same
// compiled statement tree concurrently with different coordinates, the way
// a GPU kernel launch does -- except the units are goroutines.
//
// Every unit runs the whole tree against its own clone of the iteration
// state; units never share mutable state directly. Cross-unit results flow
// only through the reduction protocol: lane partials are folded per warp
// (after the warp's lanes join), warp partials per block, and block
// partials into the single resolving goroutine. Units whose coordinate
// falls outside a dimension still descend through enclosed statements with
// activity=false, so they stay aligned with active units at any barrier an
// enclosed statement imposes.
package gridgo

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/loopkit/loopkit/backends"
	"github.com/loopkit/loopkit/internal/unitpool"
	"github.com/loopkit/loopkit/kernel"
)

// BackendName to be used in LOOPKIT_BACKEND to specify this backend.
const BackendName = "grid"

func init() {
	backends.Register(BackendName, New)
}

// Config is the shape of the unit hierarchy. It is fixed per backend
// instance: policies are specialized against it at compile time.
type Config struct {
	// Blocks in the grid.
	Blocks int
	// WarpsPerBlock in each block.
	WarpsPerBlock int
	// LanesPerWarp is the warp width. Masked policies are checked against
	// it at compile time.
	LanesPerWarp int
}

// DefaultConfig mirrors a modest GPU launch: one block of one 32-lane warp.
var DefaultConfig = Config{Blocks: 1, WarpsPerBlock: 1, LanesPerWarp: 32}

// parseConfig parses "blocks=B,warps=W,lanes=L" (each key optional, any
// order) on top of DefaultConfig.
func parseConfig(config string) (Config, error) {
	cfg := DefaultConfig
	if config == "" {
		return cfg, nil
	}
	for _, part := range strings.Split(config, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return cfg, errors.Errorf("gridgo config %q: %q is not a key=value pair", config, part)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return cfg, errors.Wrapf(err, "gridgo config %q: value of %q", config, key)
		}
		if n <= 0 {
			return cfg, errors.Errorf("gridgo config %q: %s must be positive, got %d", config, key, n)
		}
		switch key {
		case "blocks":
			cfg.Blocks = n
		case "warps":
			cfg.WarpsPerBlock = n
		case "lanes":
			cfg.LanesPerWarp = n
		default:
			return cfg, errors.Errorf("gridgo config %q: unknown key %q (want blocks, warps or lanes)", config, key)
		}
	}
	return cfg, nil
}

// New constructs a grid Backend from a "blocks=B,warps=W,lanes=L" config
// string (empty string means DefaultConfig).
func New(config string) (backends.Backend, error) {
	cfg, err := parseConfig(config)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig constructs a grid Backend with an explicit hierarchy shape.
func NewWithConfig(cfg Config) *Backend {
	b := &Backend{cfg: cfg, pool: unitpool.New()}
	klog.V(1).Infof("gridgo: backend created, %d blocks x %d warps x %d lanes (%d units)",
		cfg.Blocks, cfg.WarpsPerBlock, cfg.LanesPerWarp, cfg.Blocks*cfg.WarpsPerBlock*cfg.LanesPerWarp)
	return b
}

// Backend implements the backends.Backend interface.
type Backend struct {
	cfg  Config
	pool *unitpool.Pool
}

// Compile-time check.
var _ backends.Backend = (*Backend)(nil)

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "Hierarchical goroutine grid backend (blocks x warps x lanes)"
}

// Config returns the backend's hierarchy shape.
func (b *Backend) Config() Config { return b.cfg }

// Compile implements backends.Backend. Mask capacities are checked against
// the warp width here, before any execution can start.
func (b *Backend) Compile(program *kernel.Program) backends.Executable {
	e := &Executable{
		backend: b,
		program: program,
		id:      uuid.NewString(),
	}
	e.root = e.compileList(program.Statements())
	klog.V(1).Infof("gridgo: compiled program %q (exec %s)", program.Name(), e.id)
	return e
}
