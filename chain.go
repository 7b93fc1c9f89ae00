package fat12

// follow walks the cluster chain starting at start, calling visit for
// each in-use cluster in order. It stops at the first end-of-chain
// marker, guards against runaway loops by bounding iterations at
// geom.CountOfClusters (spec §4.4), and reports ErrDefectiveCluster if
// the chain runs into a 0xFF7 marker. Ported from the teacher's
// create_chain/remove_chain traversal idiom, generalized into a single
// read-only walker the higher-level chain operations share.
func (v *Volume) follow(start uint32, visit func(cluster uint32) error) error {
	if start < clusterMinData {
		return wrapErr("follow", "", ErrChainCorrupt)
	}
	clst := start
	for i := uint32(0); ; i++ {
		if i > v.geom.CountOfClusters {
			return wrapErr("follow", "", ErrChainCorrupt)
		}
		if err := visit(clst); err != nil {
			return err
		}
		next := v.readEntry(clst)
		switch {
		case isEndOfChain(next):
			return nil
		case next == clusterDefective:
			return wrapErr("follow", "", ErrDefectiveCluster)
		case next < clusterMinData || next > clusterMaxData:
			return wrapErr("follow", "", ErrChainCorrupt)
		}
		clst = uint32(next)
	}
}

// chainClusters returns every cluster in start's chain, in order.
func (v *Volume) chainClusters(start uint32) ([]uint32, error) {
	var out []uint32
	err := v.follow(start, func(c uint32) error {
		out = append(out, c)
		return nil
	})
	return out, err
}

// lastCluster returns the final in-chain cluster before the end
// marker. Fails if start is 0 (spec §4.4).
func (v *Volume) lastCluster(start uint32) (uint32, error) {
	if start == 0 {
		return 0, wrapErr("lastCluster", "", ErrChainCorrupt)
	}
	var last uint32
	err := v.follow(start, func(c uint32) error {
		last = c
		return nil
	})
	return last, err
}

// findFreeCluster scans allocation-table copy 0 for the lowest-indexed
// free cluster (index >= 2). It returns ok=false if the volume is full.
// Spec §4.4 guarantees determinism: the lowest free index always wins.
func (v *Volume) findFreeCluster() (cluster uint32, ok bool) {
	total := v.geom.CountOfClusters + 2
	for i := uint32(clusterMinData); i < total; i++ {
		if v.readEntry(i) == clusterFree {
			return i, true
		}
	}
	return 0, false
}

// allocate finds a free cluster, marks it end-of-chain in every
// allocation-table copy, and links the previous last cluster of
// start's chain to it. If start is 0, the new cluster is returned
// unlinked — the caller is creating a brand-new chain. Ported from the
// teacher's create_chain, simplified: this engine always allocates a
// single cluster at a time and never attempts the contiguous-run
// optimization the teacher's block-device model cared about.
func (v *Volume) allocate(start uint32) (uint32, error) {
	free, ok := v.findFreeCluster()
	if !ok {
		return 0, wrapErr("allocate", "", ErrVolumeFull)
	}
	v.writeEntryAllCopies(free, clusterEOC)
	if start != 0 {
		last, err := v.lastCluster(start)
		if err != nil {
			return 0, err
		}
		v.writeEntryAllCopies(last, uint16(free))
	}
	return free, nil
}

// freeChain walks start's chain and marks every visited cluster free
// in every allocation-table copy. It stops (without reverting prior
// writes) if it encounters a defective marker mid-chain, matching the
// best-effort, non-transactional semantics of spec §7.
func (v *Volume) freeChain(start uint32) error {
	clusters, err := v.chainClusters(start)
	// Even on ErrDefectiveCluster, free everything that was walked
	// before the defect was hit.
	for _, c := range clusters {
		v.writeEntryAllCopies(c, clusterFree)
	}
	if err != nil && Kind(err) != ErrDefectiveCluster {
		return err
	}
	return nil
}
