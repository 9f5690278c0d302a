// Package item defines the core domain entities for mission items: the shared
// templates (datablocks) and the world instances created from them.
// This package is PURE and must NOT import any infrastructure packages.
package item

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template is the shared, read-only configuration record for an item kind.
// Many world instances reference the same Template.
type Template struct {
	Name              string `yaml:"name" json:"name"`
	PickupName        string `yaml:"pickup_name" json:"pickup_name"` // Shown to the client on pickup
	ShapeFile         string `yaml:"shape_file" json:"shape_file"`
	DynamicReflection bool   `yaml:"dynamic_reflection" json:"dynamic_reflection"`

	// MaxInventory is the max inventory per object (100 bullets per box, etc.).
	// Nil means unset.
	MaxInventory *int `yaml:"max_inventory,omitempty" json:"max_inventory,omitempty"`
}

// HasMaxInventory reports whether the template bounds its stack size.
func (t *Template) HasMaxInventory() bool {
	return t.MaxInventory != nil
}

// Max returns MaxInventory, or 0 when unset.
func (t *Template) Max() int {
	if t.MaxInventory == nil {
		return 0
	}
	return *t.MaxInventory
}

// Rotation is an axis-angle orientation. Items only spin about z.
type Rotation struct {
	X, Y, Z float64
	Angle   float64 // degrees
}

// ZRotation returns a rotation of deg degrees about the z axis.
func ZRotation(deg float64) Rotation {
	return Rotation{Z: 1, Angle: deg}
}

func (r Rotation) String() string {
	return fmt.Sprintf("%g %g %g %g", r.X, r.Y, r.Z, r.Angle)
}

// Fade describes an in-progress visibility transition.
type Fade struct {
	Start    time.Duration `json:"start"`    // Scheduler time the fade begins
	Duration time.Duration `json:"duration"` // Zero means instant
	Out      bool          `json:"out"`      // True fades to invisible
}

// Opacity returns the visibility in [0,1] at scheduler time now.
func (f Fade) Opacity(now time.Duration) float64 {
	var progress float64
	switch {
	case now < f.Start:
		progress = 0
	case f.Duration <= 0 || now >= f.Start+f.Duration:
		progress = 1
	default:
		progress = float64(now-f.Start) / float64(f.Duration)
	}
	if f.Out {
		return 1 - progress
	}
	return progress
}

// Instance is an item object living in the mission world.
type Instance struct {
	ID       string    `json:"id"`
	Template *Template `json:"-"`
	Rotation Rotation  `json:"-"`

	// Count is the number of inventory items in the object.
	// Nil means unset; it then defaults to the template's MaxInventory.
	Count *int `json:"count,omitempty"`

	Static  bool `json:"static"` // Respawns after pickup instead of disappearing
	Rotate  bool `json:"rotate"` // Spins in place
	Hidden  bool `json:"hidden"`
	Fade    Fade `json:"fade"`
	Deleted bool `json:"deleted"`
}

// NewInstance creates an instance of t with a fresh ID. It is fully visible.
func NewInstance(t *Template) *Instance {
	return &Instance{
		ID:       uuid.NewString(),
		Template: t,
		Fade:     Fade{Out: false},
	}
}

// IsStatic reports whether the instance auto-respawns after pickup.
func (i *Instance) IsStatic() bool {
	return i.Static
}

// EffectiveCount returns Count, falling back to the template's MaxInventory.
// ok is false when neither is set.
func (i *Instance) EffectiveCount() (count int, ok bool) {
	if i.Count != nil {
		return *i.Count, true
	}
	if i.Template != nil && i.Template.MaxInventory != nil {
		return *i.Template.MaxInventory, true
	}
	return 0, false
}

// Visible reports whether a client would currently see the object.
func (i *Instance) Visible(now time.Duration) bool {
	return !i.Deleted && !i.Hidden && i.Fade.Opacity(now) > 0
}

// Int returns a pointer to v, for optional fields.
func Int(v int) *int {
	return &v
}
