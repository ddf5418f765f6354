package propagation

import (
	"diffusion-sim/model"
)

// Neighborhood sends every piece to all neighbors of the sender
type Neighborhood[U, I comparable] struct {
	Orientation model.Orientation
}

func NewNeighborhood[U, I comparable](orientation model.Orientation) *Neighborhood[U, I] {
	return &Neighborhood[U, I]{Orientation: orientation}
}

func (n *Neighborhood[U, I]) ResetSelections(rc *model.RunContext[U], data *model.Data[U, I]) {}

func (n *Neighborhood[U, I]) UsersToPropagate(
	rc *model.RunContext[U],
	info model.PropagatedInformation[I],
	user *model.UserState[U, I],
	data *model.Data[U, I],
) []U {
	return data.Graph().Neighbors(user.UserID, n.Orientation)
}

func (n *Neighborhood[U, I]) DependsOnInformationPiece() bool { return false }
