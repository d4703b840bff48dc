package dedup

import (
	"cmp"
	"slices"

	"dupmap/internal/catalog"
)

// Cluster is a set of file instances sharing one content hash.
type Cluster struct {
	Hash    string
	Members []catalog.FileRecord
}

// Name returns the shared base name of the cluster members.
func (c Cluster) Name() string {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0].Name
}

// Size returns the shared size of the cluster members.
func (c Cluster) Size() int64 {
	if len(c.Members) == 0 {
		return 0
	}
	return c.Members[0].Size
}

// Clusters maps a content hash to the instances carrying it.
type Clusters map[string][]catalog.FileRecord

// ClusterByHash sorts resolved records by hash and partitions them into runs of
// equal hash. Records without a hash are ignored. Singleton partitions are
// kept; use Duplicates to drop them. Member order within a partition follows
// input order.
func ClusterByHash(resolved []catalog.FileRecord) Clusters {
	sorted := make([]catalog.FileRecord, 0, len(resolved))
	for _, rec := range resolved {
		if rec.HasHash() {
			sorted = append(sorted, rec)
		}
	}
	slices.SortStableFunc(sorted, func(a, b catalog.FileRecord) int {
		return cmp.Compare(a.Hash, b.Hash)
	})

	out := make(Clusters)
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) && sorted[end].Hash == sorted[start].Hash {
			end++
		}
		out[sorted[start].Hash] = slices.Clone(sorted[start:end])
		start = end
	}
	return out
}

// Sorted returns every cluster ordered by hash.
func (c Clusters) Sorted() []Cluster {
	hashes := make([]string, 0, len(c))
	for hash := range c {
		hashes = append(hashes, hash)
	}
	slices.Sort(hashes)
	out := make([]Cluster, 0, len(hashes))
	for _, hash := range hashes {
		out = append(out, Cluster{Hash: hash, Members: c[hash]})
	}
	return out
}

// Duplicates returns the clusters with at least two members, ordered by hash.
func (c Clusters) Duplicates() []Cluster {
	var out []Cluster
	for _, cluster := range c.Sorted() {
		if len(cluster.Members) >= 2 {
			out = append(out, cluster)
		}
	}
	return out
}
