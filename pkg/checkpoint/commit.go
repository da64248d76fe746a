package checkpoint

import (
	"snapstore/pkg/objects"
	"snapstore/pkg/types"
)

// CommitInfo pairs a commit's hash with its decoded body, as returned by
// GetHistory.
type CommitInfo struct {
	Hash   types.Hash
	Commit types.Commit
}

// historyCap bounds BFS traversal of the commit DAG, per spec.md §4.5
// "a sanity cap (e.g., 1000) bounds runaway traversal".
const historyCap = 1000

// getHistory performs a BFS over the commit DAG reachable from start,
// following parents, returning results sorted by timestamp descending.
func getHistory(store *objects.Store, start types.Hash, log warner) ([]CommitInfo, error) {
	if start.IsZero() {
		return nil, nil
	}

	visited := map[types.Hash]bool{start: true}
	queue := []types.Hash{start}
	var out []CommitInfo

	for len(queue) > 0 {
		if len(out) >= historyCap {
			log.Warnf("checkpoint: history traversal capped at %d commits", historyCap)
			break
		}
		h := queue[0]
		queue = queue[1:]

		obj, err := store.Get(h)
		if err != nil {
			log.Warnf("checkpoint: history traversal: skipping unreadable commit %s: %v", h, err)
			continue
		}
		if obj.Kind != types.KindCommit {
			log.Warnf("checkpoint: history traversal: skipping %s: expected commit, got %s", h, obj.Kind)
			continue
		}
		out = append(out, CommitInfo{Hash: h, Commit: obj.Commit})

		for _, parent := range obj.Commit.Parents {
			if !visited[parent] {
				visited[parent] = true
				queue = append(queue, parent)
			}
		}
	}

	sortCommitsByTimestampDesc(out)
	return out, nil
}

func sortCommitsByTimestampDesc(infos []CommitInfo) {
	// RFC3339 canonical form is monotonic under string compare, per
	// spec.md §4.5 "string compare on RFC3339 is acceptable".
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0 && infos[j].Commit.Timestamp > infos[j-1].Commit.Timestamp; j-- {
			infos[j], infos[j-1] = infos[j-1], infos[j]
		}
	}
}
