package main

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/modelstore"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// ctwNodeBytes is the size of one CTW arena record.
	ctwNodeBytes  = 8
	minArenaNodes = 1 << 12
	// arenaMemoryShare is the fraction, as a divisor, of available memory
	// the arena may take.
	arenaMemoryShare = 4
	minFreeDisk      = 64 << 20
)

// arenaSize is the arena the snapshot was saved with, since a CTW only reads
// back into an arena of the same size. Without one it is requested, capped
// by available memory.
func arenaSize(log logger.Logger, requested uint64, snap *modelstore.Manifest) uint64 {
	if snap == nil || snap.ArenaNodes == 0 {
		return arenaNodes(log, requested)
	}
	if snap.ArenaNodes != requested {
		log.Infof("arena sized to snapshot %s: %d nodes, not %d", snap.ID, snap.ArenaNodes, requested)
	}
	return snap.ArenaNodes
}

// arenaNodes halves requested until the arena fits in a quarter of the
// available memory. It never goes below minArenaNodes, and leaves requested
// alone when memory cannot be read.
func arenaNodes(log logger.Logger, requested uint64) uint64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Infof("available memory unknown, arena left at %d nodes: %v", requested, err)
		return requested
	}
	limit := vm.Available / arenaMemoryShare / ctwNodeBytes
	n := requested
	for n > limit && n > minArenaNodes {
		n >>= 1
	}
	if n != requested {
		log.Infof("arena capped at %d nodes, %d bytes available", n, vm.Available)
	}
	return n
}

// checkFreeDisk logs when the snapshot directory is short of space.
func checkFreeDisk(log logger.Logger, dir string) {
	usage, err := disk.Usage(dir)
	if err != nil {
		log.Debugf("disk usage for %s: %v", dir, err)
		return
	}
	if usage.Free < minFreeDisk {
		log.Infof("only %d bytes free under %s", usage.Free, dir)
	}
}
