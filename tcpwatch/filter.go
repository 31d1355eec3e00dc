package tcpwatch

import (
	"fmt"

	"golang.org/x/net/bpf"
)

const (
	etherTypeOffset = 12
	etherHeaderLen  = 14
	etherTypeIPv4   = 0x0800
	etherTypeIPv6   = 0x86dd
	protocolTCP     = 6
	ipv6HeaderLen   = 40
	fragmentMask    = 0x1fff
)

// portFilter builds a classic BPF program which accepts TCP segments
// from or to a given port over Ethernet. It is the same as
// 'tcp and (src port N or dst port N)'.
func portFilter(port uint16, snapLen uint32) ([]bpf.RawInstruction, error) {
	program := []bpf.Instruction{
		// 0: ethertype
		bpf.LoadAbsolute{Off: etherTypeOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeIPv4, SkipFalse: 9},

		// 2: ipv4
		bpf.LoadAbsolute{Off: etherHeaderLen + 9, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: protocolTCP, SkipTrue: 14},
		bpf.LoadAbsolute{Off: etherHeaderLen + 6, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: fragmentMask, SkipTrue: 12},
		bpf.LoadMemShift{Off: etherHeaderLen},
		bpf.LoadIndirect{Off: etherHeaderLen, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipTrue: 10},
		bpf.LoadIndirect{Off: etherHeaderLen + 2, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipTrue: 8, SkipFalse: 7},

		// 11: ipv6 without extension headers
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: etherTypeIPv6, SkipTrue: 6},
		bpf.LoadAbsolute{Off: etherHeaderLen + 6, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: protocolTCP, SkipTrue: 4},
		bpf.LoadAbsolute{Off: etherHeaderLen + ipv6HeaderLen, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipTrue: 3},
		bpf.LoadAbsolute{Off: etherHeaderLen + ipv6HeaderLen + 2, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipTrue: 1},

		// 18: drop
		bpf.RetConstant{Val: 0},

		// 19: accept
		bpf.RetConstant{Val: snapLen},
	}

	rv, err := bpf.Assemble(program)
	if err != nil {
		return nil, fmt.Errorf("cannot assemble a filter: %w", err)
	}

	return rv, nil
}
