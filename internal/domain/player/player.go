// Package player defines the acting user of item transfers.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package player

import (
	"sort"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
)

// Player represents a participant holding an inventory.
type Player struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	ClientID string         `json:"client_id"` // Network client, empty for bots and offline players
	Items    map[string]int `json:"items"`     // Template name -> count
}

// NewPlayer creates a player with an empty inventory.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Items: make(map[string]int),
	}
}

// IncInventory adds amount of t, never exceeding t's MaxInventory.
// It returns the amount actually added.
func (p *Player) IncInventory(t *item.Template, amount int) int {
	if amount <= 0 {
		return 0
	}
	if p.Items == nil {
		p.Items = make(map[string]int)
	}
	have := p.Items[t.Name]
	total := have + amount
	if t.HasMaxInventory() && total > t.Max() {
		total = t.Max()
	}
	if total < have {
		total = have
	}
	p.Items[t.Name] = total
	return total - have
}

// DecInventory removes amount of t, never going below zero.
// It returns the amount actually removed.
func (p *Player) DecInventory(t *item.Template, amount int) int {
	if amount <= 0 {
		return 0
	}
	have := p.Items[t.Name]
	if amount > have {
		amount = have
	}
	if have-amount == 0 {
		delete(p.Items, t.Name)
	} else {
		p.Items[t.Name] = have - amount
	}
	return amount
}

// Inventory returns how many of t the player holds.
func (p *Player) Inventory(t *item.Template) int {
	return p.Items[t.Name]
}

// SetInventory overwrites the held count of a template by name. Used when
// restoring persisted state.
func (p *Player) SetInventory(name string, count int) {
	if p.Items == nil {
		p.Items = make(map[string]int)
	}
	if count <= 0 {
		delete(p.Items, name)
		return
	}
	p.Items[name] = count
}

// GetID returns the player ID.
func (p *Player) GetID() string {
	return p.ID
}

// Client returns the player's network client ID.
func (p *Player) Client() string {
	return p.ClientID
}

// ItemNames returns the held template names in sorted order.
func (p *Player) ItemNames() []string {
	names := make([]string, 0, len(p.Items))
	for name := range p.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
