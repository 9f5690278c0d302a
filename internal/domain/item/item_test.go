package item

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFadeOpacity(t *testing.T) {
	in := Fade{Start: time.Second, Duration: time.Second}
	out := Fade{Start: time.Second, Duration: time.Second, Out: true}

	cases := []struct {
		now     time.Duration
		in, out float64
	}{
		{0, 0, 1},
		{time.Second, 0, 1},
		{1500 * time.Millisecond, 0.5, 0.5},
		{2 * time.Second, 1, 0},
		{time.Hour, 1, 0},
	}
	for _, tc := range cases {
		if got := in.Opacity(tc.now); got != tc.in {
			t.Errorf("fade-in at %v: expected %v, got %v", tc.now, tc.in, got)
		}
		if got := out.Opacity(tc.now); got != tc.out {
			t.Errorf("fade-out at %v: expected %v, got %v", tc.now, tc.out, got)
		}
	}
}

func TestInstantFadeOut(t *testing.T) {
	f := Fade{Start: 3 * time.Second, Out: true}
	if got := f.Opacity(3 * time.Second); got != 0 {
		t.Errorf("Expected an instant fade-out to be invisible immediately, got %v", got)
	}
}

func TestNewInstanceVisible(t *testing.T) {
	inst := NewInstance(&BoxTest)
	if inst.ID == "" {
		t.Errorf("Expected an instance ID")
	}
	if !inst.Visible(0) {
		t.Errorf("Expected a new instance to be visible")
	}
	if NewInstance(&BoxTest).ID == inst.ID {
		t.Errorf("Expected unique instance IDs")
	}
}

func TestEffectiveCount(t *testing.T) {
	withMax := &Template{Name: "Ammo", MaxInventory: Int(100)}

	inst := NewInstance(withMax)
	if n, ok := inst.EffectiveCount(); !ok || n != 100 {
		t.Errorf("Expected fallback to MaxInventory 100, got %d (%v)", n, ok)
	}
	inst.Count = Int(7)
	if n, ok := inst.EffectiveCount(); !ok || n != 7 {
		t.Errorf("Expected explicit count 7, got %d (%v)", n, ok)
	}
	if _, ok := NewInstance(&Template{Name: "Bare"}).EffectiveCount(); ok {
		t.Errorf("Expected no count when neither is set")
	}
}

func TestZRotationString(t *testing.T) {
	if got := ZRotation(90).String(); got != "0 0 1 90" {
		t.Errorf("Expected \"0 0 1 90\", got %q", got)
	}
}

func TestRegistryBuiltIns(t *testing.T) {
	r := NewRegistry()
	box, err := r.Get("BoxTest")
	if err != nil {
		t.Fatalf("Expected BoxTest to be registered: %v", err)
	}
	if box.PickupName != "a test box" || box.ShapeFile != "~/data/shapes/test/newBox2.dts" || box.HasMaxInventory() {
		t.Errorf("Unexpected BoxTest %+v", box)
	}
	if _, err := r.Get("Missing"); !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("Expected ErrUnknownTemplate, got %v", err)
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Template{}); err == nil {
		t.Errorf("Expected an error for an unnamed template")
	}
	if err := r.Register(Template{Name: "Bad", MaxInventory: Int(-1)}); err == nil {
		t.Errorf("Expected an error for a negative max inventory")
	}
}

func TestRegistryLoadYAML(t *testing.T) {
	raw := []byte(`
templates:
  - name: Ammo
    pickup_name: some ammo
    shape_file: ~/data/shapes/ammo.dts
    max_inventory: 100
  - name: Flag
    pickup_name: the flag
`)
	r := NewRegistry()
	if err := r.LoadYAML(raw); err != nil {
		t.Fatalf("load: %v", err)
	}
	names := r.Names()
	if len(names) != 3 || names[0] != "Ammo" || names[1] != "BoxTest" || names[2] != "Flag" {
		t.Errorf("Unexpected names %v", names)
	}
	ammo, _ := r.Get("Ammo")
	if ammo.Max() != 100 || ammo.PickupName != "some ammo" {
		t.Errorf("Unexpected ammo template %+v", ammo)
	}
	flag, _ := r.Get("Flag")
	if flag.HasMaxInventory() {
		t.Errorf("Expected Flag to leave MaxInventory unset")
	}

	if err := r.LoadYAML([]byte("templates: [")); err == nil {
		t.Errorf("Expected malformed yaml to fail")
	}
}

func TestShippedTemplates(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "configs", "templates.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	r := NewRegistry()
	if err := r.LoadYAML(raw); err != nil {
		t.Fatalf("load: %v", err)
	}
	box, err := r.Get("AmmoBox")
	if err != nil || box.Max() != 25 {
		t.Errorf("Expected AmmoBox with max 25, got %+v (%v)", box, err)
	}
}
