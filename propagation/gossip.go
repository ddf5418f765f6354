package propagation

import (
	"diffusion-sim/model"
)

// Mode is the direction of a gossip exchange
type Mode int

const (
	// PushPull exchanges pieces both ways between paired users
	PushPull Mode = iota
	// PushOnly sends from the user to the chosen neighbor
	PushOnly
	// PullOnly sends from the chosen neighbor to the user
	PullOnly
)

func (m Mode) String() string {
	switch m {
	case PushPull:
		return "pull-push"
	case PushOnly:
		return "push"
	case PullOnly:
		return "pull"
	}
	return "unknown"
}

// Gossip pairs every user with one random neighbor per round. A neighbor
// contacted in the last WaitTime rounds is not picked; a user whose
// neighbors are all in the window contacts nobody that round.
type Gossip[U, I comparable] struct {
	Mode        Mode
	WaitTime    int
	Orientation model.Orientation
}

func NewPullPush[U, I comparable](waitTime int, orientation model.Orientation) *Gossip[U, I] {
	return &Gossip[U, I]{Mode: PushPull, WaitTime: waitTime, Orientation: orientation}
}

func NewPush[U, I comparable](waitTime int, orientation model.Orientation) *Gossip[U, I] {
	return &Gossip[U, I]{Mode: PushOnly, WaitTime: waitTime, Orientation: orientation}
}

func NewPull[U, I comparable](waitTime int, orientation model.Orientation) *Gossip[U, I] {
	return &Gossip[U, I]{Mode: PullOnly, WaitTime: waitTime, Orientation: orientation}
}

// ResetSelections pairs the users for this round
func (g *Gossip[U, I]) ResetSelections(rc *model.RunContext[U], data *model.Data[U, I]) {
	rc.ResetTargets()

	for _, u := range data.Users() {
		neighbors := data.Graph().Neighbors(u, g.Orientation)
		if len(neighbors) == 0 {
			continue
		}

		candidates := make([]U, 0, len(neighbors))
		for _, v := range neighbors {
			if !rc.RecentlyVisited(u, v) {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) == 0 {
			rc.Skip(u, g.WaitTime)
			continue
		}
		v := candidates[rc.Rand.Intn(len(candidates))]

		switch g.Mode {
		case PushPull:
			rc.AddTarget(u, v)
			rc.AddTarget(v, u)
		case PushOnly:
			rc.AddTarget(u, v)
		case PullOnly:
			rc.AddTarget(v, u)
		}

		rc.Remember(u, v, g.WaitTime)
	}
}

func (g *Gossip[U, I]) UsersToPropagate(
	rc *model.RunContext[U],
	info model.PropagatedInformation[I],
	user *model.UserState[U, I],
	data *model.Data[U, I],
) []U {
	return rc.TargetsOf(user.UserID)
}

func (g *Gossip[U, I]) DependsOnInformationPiece() bool { return false }
