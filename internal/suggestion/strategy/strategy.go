// Package strategy holds the independent suggestion scorers. Each strategy
// ranks candidates for one signal and knows nothing about the others; the
// engine weights and merges their outputs.
package strategy

import (
	"context"

	"linkup/internal/connection/models"
	id "linkup/pkg/domain"
)

// Candidate is one scored suggestion from a single strategy. Score is the
// strategy's raw signal strength in [0,1]; the engine applies the weight.
type Candidate struct {
	UserID id.UserID `json:"user_id"`
	Score  float64   `json:"score"`
	Reason string    `json:"reason"`
}

// Strategy is an independent suggestion scorer.
//
// Applicable lets a strategy bow out for users its signal cannot serve
// (no connections yet, no industry on file). Generate returns at most
// limit candidates, best first.
type Strategy interface {
	Name() string
	Weight() float64
	Applicable(ctx context.Context, userID id.UserID) (bool, error)
	Generate(ctx context.Context, userID id.UserID, limit int) ([]Candidate, error)
}

// ConnectionReader is the slice of the connection store strategies read.
type ConnectionReader interface {
	AcceptedPeerIDs(ctx context.Context, userID id.UserID) ([]id.UserID, error)
	ListPendingSent(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error)
	ListPendingReceived(ctx context.Context, userID id.UserID) ([]*models.ConnectionRecord, error)
}

// exclusions collects the users who must never be suggested to userID: the
// user themselves, accepted peers, and both sides' pending counterparties.
func exclusions(ctx context.Context, connections ConnectionReader, userID id.UserID) (map[id.UserID]struct{}, error) {
	excluded := map[id.UserID]struct{}{userID: {}}

	peers, err := connections.AcceptedPeerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, peer := range peers {
		excluded[peer] = struct{}{}
	}

	sent, err := connections.ListPendingSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, record := range sent {
		excluded[record.AddresseeID] = struct{}{}
	}

	received, err := connections.ListPendingReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, record := range received {
		excluded[record.RequesterID] = struct{}{}
	}
	return excluded, nil
}
