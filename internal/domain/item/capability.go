package item

// Item is the behavior a world item exposes to the engine.
type Item interface {
	Respawn()
	SchedulePop()
	IsStatic() bool
}

// Carrier is anyone holding an inventory: the acting user of a throw or pickup.
type Carrier interface {
	GetID() string
	IncInventory(t *Template, amount int) int
	DecInventory(t *Template, amount int) int
	Inventory(t *Template) int
	Client() string // Empty when the carrier has no network client
}

// ItemTemplate is the inventory hook set bound to a template.
// amount is optional; nil means unspecified.
type ItemTemplate interface {
	OnThrow(user Carrier, amount *int) *Instance
	OnPickup(obj *Instance, user Carrier, amount *int) bool
	Create() *Instance
}
