package strategy

import (
	"context"
	"fmt"
	"sort"

	id "linkup/pkg/domain"
)

const MutualConnectionsName = "mutual-connections"

// MutualConnections suggests friends-of-friends, scored by how many
// accepted connections the candidate shares with the user, normalized by
// the best count in the batch.
type MutualConnections struct {
	connections ConnectionReader
	weight      float64
}

func NewMutualConnections(connections ConnectionReader, weight float64) *MutualConnections {
	return &MutualConnections{connections: connections, weight: weight}
}

func (s *MutualConnections) Name() string    { return MutualConnectionsName }
func (s *MutualConnections) Weight() float64 { return s.weight }

// Applicable is false for users with no accepted connections: there is no
// second-degree graph to walk.
func (s *MutualConnections) Applicable(ctx context.Context, userID id.UserID) (bool, error) {
	peers, err := s.connections.AcceptedPeerIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(peers) > 0, nil
}

func (s *MutualConnections) Generate(ctx context.Context, userID id.UserID, limit int) ([]Candidate, error) {
	excluded, err := exclusions(ctx, s.connections, userID)
	if err != nil {
		return nil, err
	}

	peers, err := s.connections.AcceptedPeerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	shared := make(map[id.UserID]int)
	for _, peer := range peers {
		secondDegree, err := s.connections.AcceptedPeerIDs(ctx, peer)
		if err != nil {
			return nil, err
		}
		for _, candidate := range secondDegree {
			if _, skip := excluded[candidate]; skip {
				continue
			}
			shared[candidate]++
		}
	}
	if len(shared) == 0 {
		return nil, nil
	}

	maxShared := 0
	for _, count := range shared {
		if count > maxShared {
			maxShared = count
		}
	}

	candidates := make([]Candidate, 0, len(shared))
	for candidate, count := range shared {
		candidates = append(candidates, Candidate{
			UserID: candidate,
			Score:  float64(count) / float64(maxShared),
			Reason: mutualReason(count),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID.String() < candidates[j].UserID.String()
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func mutualReason(count int) string {
	if count == 1 {
		return "You have 1 mutual connection"
	}
	return fmt.Sprintf("You have %d mutual connections", count)
}
