package memaccessagent

import "sort"

func sortTargets(ts []target) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].peer != ts[j].peer {
			return ts[i].peer < ts[j].peer
		}

		return ts[i].address < ts[j].address
	})
}
