// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"github.com/gomlx/exceptions"

	"github.com/loopkit/loopkit/kernel"
)

// CheckReductions panics unless every reduction's parameter slot exists in
// data. Backends call it on launch entry, together with
// Program.CheckData, so slot violations surface before any execution.
func CheckReductions(data *kernel.Data, reductions []kernel.Reduction) {
	for i, r := range reductions {
		if r.Slot() < 0 || r.Slot() >= data.NumParams() {
			exceptions.Panicf("reduction #%d accumulates into parameter slot %d but the iteration state only has %d slots",
				i, r.Slot(), data.NumParams())
		}
	}
}
