// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface an execution backend needs to
// implement to run LoopKit programs, and the registry used to select one.
//
// A backend compiles a kernel.Program -- once, resolving every (policy,
// backend) pairing to a concrete statement executor -- into an Executable
// that can be launched many times with different iteration states.
//
// Construction and compilation contract violations panic with a stack
// trace; see package github.com/gomlx/exceptions. Launching a valid
// Executable with valid data has no recoverable error path.
package backends

import (
	"os"
	"sort"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/loopkit/loopkit/kernel"
)

// Backend compiles programs for one execution model.
type Backend interface {
	// Name returns the short name of the backend, e.g. "seq" or "grid".
	Name() string

	// Description is a longer description of the backend, for pretty-printing.
	Description() string

	// Compile resolves the program's statement tree into a tree of
	// executors for this backend. It panics on specialization-time contract
	// violations (e.g. a lane mask wider than the backend's warp width):
	// those must surface before any execution, never during one.
	Compile(program *kernel.Program) Executable
}

// Executable is a compiled program, ready to launch. It is immutable and
// safe to launch concurrently, as long as each launch gets its own Data.
type Executable interface {
	// Run drives the loop nest over data, invoking body once per active
	// iteration. Each reduction's external result is updated exactly once.
	Run(data *kernel.Data, body kernel.Body, reductions ...kernel.Reduction)
}

// Indexer is the injected hardware-coordinate capability: the current
// execution unit's coordinate and the group size at each hierarchy level.
// The sequential backend's implementation trivially reports a single unit;
// hierarchical backends report the unit's lane/warp/block coordinates.
type Indexer interface {
	Coordinate(level kernel.Level) int
	GroupSize(level kernel.Level) int
}

// Constructor takes a backend-specific config string (possibly empty) and
// returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register a backend constructor under the given name.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends, sorted.
func List() []string {
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigEnvVar is the environment variable with the default backend
// configuration, in the same "<backend_name>:<backend_config>" format
// NewWithConfig takes.
const ConfigEnvVar = "LOOPKIT_BACKEND"

// DefaultConfig is the backend configuration used by New when the
// environment doesn't set one.
var DefaultConfig string

// New returns a Backend built from the default configuration:
//
//  1. The environment variable LOOPKIT_BACKEND, if set.
//  2. The DefaultConfig variable, if not empty.
//  3. The first registered backend, with an empty configuration.
func New() (Backend, error) {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// MustNew is New, panicking on error.
func MustNew() Backend {
	b, err := New()
	if err != nil {
		panic(errors.WithMessage(err, "backends.MustNew"))
	}
	return b
}

// NewWithConfig builds a Backend from a "<backend_name>:<backend_config>"
// string. An empty name selects the first registered backend; the part
// after the first ":" is passed verbatim to the backend's constructor.
func NewWithConfig(config string) (Backend, error) {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered LoopKit backends -- import one, e.g. import _ "github.com/loopkit/loopkit/backends/seqgo"`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if config != "" {
		backendName = config
		backendConfig = ""
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		return nil, errors.Errorf("unknown backend %q in configuration %q, registered backends are %q",
			backendName, config, List())
	}
	b, err := constructor(backendConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "building backend %q from configuration %q", backendName, config)
	}
	return b, nil
}
