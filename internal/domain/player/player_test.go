package player

import (
	"testing"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
)

func TestIncInventoryClampsToMax(t *testing.T) {
	ammo := &item.Template{Name: "Ammo", MaxInventory: item.Int(10)}
	p := NewPlayer("P1", "User")

	if got := p.IncInventory(ammo, 7); got != 7 {
		t.Errorf("Expected 7 added, got %d", got)
	}
	if got := p.IncInventory(ammo, 7); got != 3 {
		t.Errorf("Expected only 3 added at the cap, got %d", got)
	}
	if p.Inventory(ammo) != 10 {
		t.Errorf("Expected 10 held, got %d", p.Inventory(ammo))
	}
	if got := p.IncInventory(ammo, -4); got != 0 || p.Inventory(ammo) != 10 {
		t.Errorf("Expected negative increments ignored")
	}
}

func TestIncInventoryUnbounded(t *testing.T) {
	flag := &item.Template{Name: "Flag"}
	p := &Player{ID: "P1"}
	p.IncInventory(flag, 500)
	if p.Inventory(flag) != 500 {
		t.Errorf("Expected 500 held without a max, got %d", p.Inventory(flag))
	}
}

func TestDecInventoryFloorsAtZero(t *testing.T) {
	ammo := &item.Template{Name: "Ammo"}
	p := NewPlayer("P1", "User")
	p.Items["Ammo"] = 4

	if got := p.DecInventory(ammo, 3); got != 3 || p.Inventory(ammo) != 1 {
		t.Errorf("Expected 3 removed leaving 1, got removed=%d held=%d", got, p.Inventory(ammo))
	}
	if got := p.DecInventory(ammo, 5); got != 1 {
		t.Errorf("Expected only 1 removed, got %d", got)
	}
	if _, ok := p.Items["Ammo"]; ok {
		t.Errorf("Expected empty stacks to be dropped")
	}
}

func TestSetInventoryAndNames(t *testing.T) {
	p := NewPlayer("P1", "User")
	p.SetInventory("Zeta", 2)
	p.SetInventory("Alpha", 1)
	p.SetInventory("Gone", 0)

	names := p.ItemNames()
	if len(names) != 2 || names[0] != "Alpha" || names[1] != "Zeta" {
		t.Errorf("Unexpected names %v", names)
	}
	var _ item.Carrier = p
}
