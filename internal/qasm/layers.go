package qasm

import (
	"github.com/HershLalwani/qlower/internal/ops"
)

// Layers groups cmds into moments. A command goes into the first moment
// after the last one that touched any of its qubits, so commands on
// disjoint qubits share a moment. A barrier without targets spans every
// qubit seen so far. Allocation, deallocation and flush occupy no moment.
func Layers(cmds []ops.Command) [][]ops.Command {
	var layers [][]ops.Command
	lastOnQubit := make(map[ops.Qubit]int)
	floor := 0

	for _, cmd := range cmds {
		switch cmd.Gate().Kind() {
		case ops.KindAllocate, ops.KindDeallocate, ops.KindFlush:
			continue
		}

		qs := cmd.Qubits()
		spansAll := cmd.Gate().Kind() == ops.KindBarrier && len(qs) == 0
		step := floor
		if spansAll {
			step = len(layers)
		}
		for _, q := range qs {
			if last, ok := lastOnQubit[q]; ok && last+1 > step {
				step = last + 1
			}
		}

		for len(layers) <= step {
			layers = append(layers, nil)
		}
		layers[step] = append(layers[step], cmd)
		for _, q := range qs {
			lastOnQubit[q] = step
		}
		if spansAll {
			floor = step + 1
		}
	}
	return layers
}

// Depth is the number of moments of cmds, barriers included.
func Depth(cmds []ops.Command) int {
	return len(Layers(cmds))
}
