package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
	"github.com/MRamiBalles/pickup-server/internal/events"
	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
	"github.com/MRamiBalles/pickup-server/internal/platform/metrics"
)

const (
	DefaultRespawnTime = 20 * time.Second
	DefaultPopTime     = 10 * time.Second

	fadeDuration     = 1000 * time.Millisecond
	respawnFadeDelay = 100 * time.Millisecond

	// MsgItemPickup is the tag of the client notification sent on pickup.
	MsgItemPickup = "MsgItemPickup"
	pickupFormat  = "You picked up %1"
)

// Scheduled action names, used to cancel timers selectively.
const (
	actionUnhide  = "hide"
	actionFadeIn  = "startFade.in"
	actionFadeOut = "startFade.out"
	actionDelete  = "delete"
)

// ErrUnknownItem is returned when an instance ID is not in the world.
var ErrUnknownItem = errors.New("unknown item instance")

// ItemConfig holds the item timer durations. It is immutable after construction.
type ItemConfig struct {
	// RespawnTime is how long a static item stays hidden after pickup.
	RespawnTime time.Duration
	// PopTime is how long a thrown or dropped item lasts before deletion.
	PopTime time.Duration
}

// DefaultItemConfig returns the stock timer durations.
func DefaultItemConfig() ItemConfig {
	return ItemConfig{RespawnTime: DefaultRespawnTime, PopTime: DefaultPopTime}
}

// Notifier delivers a formatted message to a network client.
type Notifier interface {
	Notify(recipient, event, format string, args ...string) error
}

// ItemPayload describes an item instance in event payloads.
type ItemPayload struct {
	Template string `json:"template"`
	Count    int    `json:"count"`
	Static   bool   `json:"static"`
	Rotate   bool   `json:"rotate"`
	Rotation string `json:"rotation"`
}

// FadePayload records a startFade call.
type FadePayload struct {
	DurationMs int64 `json:"duration_ms"`
	DelayMs    int64 `json:"delay_ms"`
	Out        bool  `json:"out"`
}

// InventoryChangedPayload records a change to a carrier's inventory.
type InventoryChangedPayload struct {
	PlayerID string `json:"player_id"`
	Template string `json:"template"`
	Delta    int    `json:"delta"`
	Total    int    `json:"total"`
}

// ItemSystem implements the item lifecycle: throw, pickup, respawn, pop and
// editor creation. All methods must run on the engine's logic goroutine.
type ItemSystem struct {
	config    ItemConfig
	scheduler *Scheduler
	eventLog  *events.EventLog
	logger    *logger.Logger
	notifier  Notifier
	group     *MissionGroup
	random    func() float64
	world     map[string]*item.Instance
}

// NewItemSystem wires the item lifecycle to a scheduler and event log.
// notifier may be nil.
func NewItemSystem(cfg ItemConfig, sched *Scheduler, el *events.EventLog, log *logger.Logger, notifier Notifier) *ItemSystem {
	is := &ItemSystem{
		config:    cfg,
		scheduler: sched,
		eventLog:  el,
		logger:    log,
		notifier:  notifier,
		random:    rand.Float64,
		world:     make(map[string]*item.Instance),
	}
	is.group = newMissionGroup(is)
	return is
}

// SetRandom replaces the [0,1) source used for thrown item rotation.
func (is *ItemSystem) SetRandom(fn func() float64) {
	is.random = fn
}

// SetNotifier replaces the client notifier.
func (is *ItemSystem) SetNotifier(n Notifier) {
	is.notifier = n
}

// Config returns the timer configuration.
func (is *ItemSystem) Config() ItemConfig {
	return is.config
}

// MissionGroup returns the lifecycle group of the current mission.
func (is *ItemSystem) MissionGroup() *MissionGroup {
	return is.group
}

// Lookup returns a live instance by ID.
func (is *ItemSystem) Lookup(id string) (*item.Instance, error) {
	inst, ok := is.world[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return inst, nil
}

// Instances returns every live instance.
func (is *ItemSystem) Instances() []*item.Instance {
	out := make([]*item.Instance, 0, len(is.world))
	for _, inst := range is.world {
		out = append(out, inst)
	}
	return out
}

// Respawn fades and hides a static item instantly, then brings it back
// after RespawnTime with a one second fade-in.
func (is *ItemSystem) Respawn(inst *item.Instance) {
	// A second respawn restarts the clock rather than stacking timers.
	is.scheduler.CancelNamed(inst.ID, actionUnhide, actionFadeIn)

	is.startFade(inst, 0, 0, true)
	is.hide(inst, true)

	is.scheduler.Schedule(inst.ID, is.config.RespawnTime, actionUnhide, func() {
		is.hide(inst, false)
	})
	is.scheduler.Schedule(inst.ID, is.config.RespawnTime+respawnFadeDelay, actionFadeIn, func() {
		is.startFade(inst, fadeDuration, 0, false)
	})

	is.appendEvent(events.EventTypeItemRespawn, "SYSTEM", inst, is.itemPayload(inst))
	metrics.Get().RecordRespawn()
}

// SchedulePop deletes a dynamic item after PopTime, fading it out over the
// last second.
func (is *ItemSystem) SchedulePop(inst *item.Instance) {
	is.scheduler.Schedule(inst.ID, is.config.PopTime-fadeDuration, actionFadeOut, func() {
		is.startFade(inst, fadeDuration, 0, true)
	})
	is.scheduler.Schedule(inst.ID, is.config.PopTime, actionDelete, func() {
		is.Delete(inst)
		metrics.Get().RecordPop()
	})
}

// OnThrow removes amount of t from user and drops it into the world as a
// new dynamic instance. amount defaults to 1 and is clamped to t's
// MaxInventory. It returns nil without side effects when nothing is thrown.
func (is *ItemSystem) OnThrow(t *item.Template, user item.Carrier, amount *int) *item.Instance {
	n := 1
	if amount != nil {
		n = *amount
	}
	if t.HasMaxInventory() && n > t.Max() {
		n = t.Max()
	}
	if n <= 0 {
		return nil
	}
	removed := user.DecInventory(t, n)
	is.inventoryChanged(user, t, -removed)

	inst := item.NewInstance(t)
	inst.Rotation = item.ZRotation(is.random() * 360)
	inst.Count = item.Int(n)
	is.world[inst.ID] = inst
	is.group.Add(inst)
	is.SchedulePop(inst)

	is.appendEvent(events.EventTypeItemThrown, actorOf(user), inst, is.itemPayload(inst))
	is.logger.With(logger.Fields{"item": inst.ID, "template": t.Name, "count": n}).Info("[ITEMS] Thrown")
	metrics.Get().RecordThrow()
	return inst
}

// OnPickup moves obj's contents into user's inventory. The requested amount
// is ignored: you get what the object carries. Static objects respawn,
// dynamic ones are deleted. It returns false when nothing was picked up.
func (is *ItemSystem) OnPickup(t *item.Template, obj *item.Instance, user item.Carrier, amount *int) bool {
	if obj.Deleted || obj.Hidden {
		return false
	}

	count := 1
	switch {
	case obj.Count != nil:
		count = *obj.Count
	case t.HasMaxInventory():
		count = t.Max()
		if count == 0 {
			return false
		}
	}

	added := user.IncInventory(t, count)
	is.inventoryChanged(user, t, added)

	if client := user.Client(); client != "" && is.notifier != nil {
		if err := is.notifier.Notify(client, MsgItemPickup, pickupFormat, t.PickupName); err != nil {
			is.logger.Warn(fmt.Sprintf("[ITEMS] Pickup notification to %s failed: %v", client, err))
		}
	}

	is.appendEvent(events.EventTypeItemPickedUp, actorOf(user), obj, ItemPayload{
		Template: t.Name,
		Count:    count,
		Static:   obj.Static,
	})
	metrics.Get().RecordPickup()
	is.logger.Event(string(events.EventTypeItemPickedUp), actorOf(user), fmt.Sprintf("%s x%d from %s", t.Name, count, obj.ID))

	// Anything not taken up by inventory is lost.
	if obj.IsStatic() {
		is.Respawn(obj)
	} else {
		is.Delete(obj)
	}
	return true
}

// Create builds the instance the mission editor places: static, rotating
// and auto-respawning. Placement into the mission group is the editor's job.
func (is *ItemSystem) Create(t *item.Template) *item.Instance {
	inst := item.NewInstance(t)
	inst.Static = true
	inst.Rotate = true
	is.world[inst.ID] = inst

	is.appendEvent(events.EventTypeItemCreated, "EDITOR", inst, is.itemPayload(inst))
	return inst
}

// Place adds an editor-created instance to the mission group.
func (is *ItemSystem) Place(inst *item.Instance) {
	is.group.Add(inst)
	is.appendEvent(events.EventTypeItemPlaced, "EDITOR", inst, is.itemPayload(inst))
}

// Delete removes inst from the world and mission group and drops every
// timer still pending for it. Deleting twice is a no-op.
func (is *ItemSystem) Delete(inst *item.Instance) {
	if inst.Deleted {
		return
	}
	inst.Deleted = true
	delete(is.world, inst.ID)
	is.group.Remove(inst)
	is.scheduler.CancelObject(inst.ID)

	is.appendEvent(events.EventTypeItemDeleted, "SYSTEM", inst, nil)
	is.logger.Debug("[ITEMS] Deleted " + inst.ID)
}

// Template binds the lifecycle hooks to t.
func (is *ItemSystem) Template(t *item.Template) item.ItemTemplate {
	return boundTemplate{sys: is, tmpl: t}
}

// Item binds the instance behaviors to inst.
func (is *ItemSystem) Item(inst *item.Instance) item.Item {
	return boundItem{sys: is, inst: inst}
}

func (is *ItemSystem) startFade(inst *item.Instance, duration, delay time.Duration, out bool) {
	inst.Fade = item.Fade{
		Start:    is.scheduler.Now() + delay,
		Duration: duration,
		Out:      out,
	}
	is.appendEvent(events.EventTypeItemFade, "SYSTEM", inst, FadePayload{
		DurationMs: duration.Milliseconds(),
		DelayMs:    delay.Milliseconds(),
		Out:        out,
	})
}

func (is *ItemSystem) hide(inst *item.Instance, hidden bool) {
	inst.Hidden = hidden
	t := events.EventTypeItemUnhidden
	if hidden {
		t = events.EventTypeItemHidden
	}
	is.appendEvent(t, "SYSTEM", inst, nil)
}

func (is *ItemSystem) inventoryChanged(user item.Carrier, t *item.Template, delta int) {
	id := actorOf(user)
	is.eventLog.Append(events.GameEvent{
		SimTime:  is.scheduler.Now(),
		Type:     events.EventTypeInventoryChanged,
		ActorID:  id,
		TargetID: id,
		Payload: InventoryChangedPayload{
			PlayerID: id,
			Template: t.Name,
			Delta:    delta,
			Total:    user.Inventory(t),
		},
	})
}

func (is *ItemSystem) appendEvent(t events.EventType, actor string, inst *item.Instance, payload interface{}) {
	is.eventLog.Append(events.GameEvent{
		SimTime:  is.scheduler.Now(),
		Type:     t,
		ActorID:  actor,
		TargetID: inst.ID,
		Payload:  payload,
	})
}

func (is *ItemSystem) itemPayload(inst *item.Instance) ItemPayload {
	count, _ := inst.EffectiveCount()
	return ItemPayload{
		Template: inst.Template.Name,
		Count:    count,
		Static:   inst.Static,
		Rotate:   inst.Rotate,
		Rotation: inst.Rotation.String(),
	}
}

func actorOf(user item.Carrier) string {
	if id := user.GetID(); id != "" {
		return id
	}
	return "UNKNOWN"
}

type boundTemplate struct {
	sys  *ItemSystem
	tmpl *item.Template
}

func (b boundTemplate) OnThrow(user item.Carrier, amount *int) *item.Instance {
	return b.sys.OnThrow(b.tmpl, user, amount)
}

func (b boundTemplate) OnPickup(obj *item.Instance, user item.Carrier, amount *int) bool {
	return b.sys.OnPickup(b.tmpl, obj, user, amount)
}

func (b boundTemplate) Create() *item.Instance {
	return b.sys.Create(b.tmpl)
}

type boundItem struct {
	sys  *ItemSystem
	inst *item.Instance
}

func (b boundItem) Respawn()       { b.sys.Respawn(b.inst) }
func (b boundItem) SchedulePop()   { b.sys.SchedulePop(b.inst) }
func (b boundItem) IsStatic() bool { return b.inst.IsStatic() }
