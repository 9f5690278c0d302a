package engine

import (
	"github.com/MRamiBalles/pickup-server/internal/domain/item"
	"github.com/MRamiBalles/pickup-server/internal/events"
)

// MissionGroup scopes world objects to the running mission so they are
// cleaned up when the mission ends.
type MissionGroup struct {
	items   *ItemSystem
	members map[string]*item.Instance
	order   []string
}

func newMissionGroup(is *ItemSystem) *MissionGroup {
	return &MissionGroup{
		items:   is,
		members: make(map[string]*item.Instance),
	}
}

// Add registers inst with the group. Adding a member again is a no-op.
func (g *MissionGroup) Add(inst *item.Instance) {
	if _, ok := g.members[inst.ID]; ok {
		return
	}
	g.members[inst.ID] = inst
	g.order = append(g.order, inst.ID)
}

// Remove drops inst from the group without deleting it.
func (g *MissionGroup) Remove(inst *item.Instance) {
	if _, ok := g.members[inst.ID]; !ok {
		return
	}
	delete(g.members, inst.ID)
	for i, id := range g.order {
		if id == inst.ID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether inst belongs to the group.
func (g *MissionGroup) Contains(inst *item.Instance) bool {
	_, ok := g.members[inst.ID]
	return ok
}

// Objects returns the members in insertion order.
func (g *MissionGroup) Objects() []*item.Instance {
	out := make([]*item.Instance, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.members[id])
	}
	return out
}

// Len returns the number of members.
func (g *MissionGroup) Len() int {
	return len(g.members)
}

// Clear deletes every member. Called when the mission ends.
func (g *MissionGroup) Clear() int {
	objs := g.Objects()
	for _, inst := range objs {
		g.items.Delete(inst)
	}
	g.items.eventLog.Append(events.GameEvent{
		SimTime: g.items.scheduler.Now(),
		Type:    events.EventTypeMissionEnded,
		ActorID: "SYSTEM",
		Payload: map[string]int{"deleted": len(objs)},
	})
	return len(objs)
}
