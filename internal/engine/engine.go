package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
	"github.com/MRamiBalles/pickup-server/internal/domain/player"
	"github.com/MRamiBalles/pickup-server/internal/events"
	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
)

var (
	// ErrStopped is returned when work is submitted to a stopped engine.
	ErrStopped = errors.New("engine stopped")
	// ErrUnknownPlayer is returned for player IDs that were never registered.
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrEmptyInventory is returned when a player throws something they do not hold.
	ErrEmptyInventory = errors.New("nothing to throw")
)

// Options configures a new Engine.
type Options struct {
	Items    ItemConfig
	TickRate time.Duration
	Notifier Notifier
}

// ItemView is a copy of an instance's state, safe to hand to other goroutines.
type ItemView struct {
	ID       string  `json:"id"`
	Template string  `json:"template"`
	Count    int     `json:"count"`
	HasCount bool    `json:"has_count"`
	Static   bool    `json:"static"`
	Rotate   bool    `json:"rotate"`
	Rotation string  `json:"rotation"`
	Hidden   bool    `json:"hidden"`
	Opacity  float64 `json:"opacity"`
	Deleted  bool    `json:"deleted"`
}

// Engine lifecycle states.
const (
	engineIdle int32 = iota
	engineRunning
	engineStopped
)

// Engine is the central orchestrator owning the mission world.
type Engine struct {
	eventLog  *events.EventLog
	logger    *logger.Logger
	ticker    *Ticker
	scheduler *Scheduler
	registry  *item.Registry

	// Sub-systems
	itemSystem *ItemSystem

	// State
	players map[string]*player.Player
	state   atomic.Int32
	done    chan struct{}
}

// NewEngine initializes the mission world.
func NewEngine(registry *item.Registry, opts Options, eventLog *events.EventLog, log *logger.Logger) *Engine {
	if opts.Items == (ItemConfig{}) {
		opts.Items = DefaultItemConfig()
	}
	sched := NewScheduler()
	e := &Engine{
		eventLog:   eventLog,
		logger:     log,
		scheduler:  sched,
		registry:   registry,
		itemSystem: NewItemSystem(opts.Items, sched, eventLog, log, opts.Notifier),
		players:    make(map[string]*player.Player),
	}
	e.ticker = NewTicker(opts.TickRate, e.step, log)
	return e
}

// Start spawns the logic goroutine. An engine runs at most once.
func (e *Engine) Start(ctx context.Context) {
	if !e.state.CompareAndSwap(engineIdle, engineRunning) {
		return
	}
	e.logger.Info("Starting mission engine...")
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		defer e.state.Store(engineStopped)
		e.ticker.Start(ctx)
	}()
}

// Stop halts the logic goroutine and waits for it to exit. Afterwards Do
// returns ErrStopped.
func (e *Engine) Stop() {
	e.ticker.Stop()
	if e.done != nil {
		<-e.done
	}
}

// Do runs fn on the logic goroutine and waits for its result. Before Start
// it runs fn inline on the caller; once the logic goroutine has exited it
// returns ErrStopped.
func (e *Engine) Do(ctx context.Context, fn func() error) error {
	switch e.state.Load() {
	case engineIdle:
		return fn()
	case engineStopped:
		return ErrStopped
	}
	done := make(chan error, 1)
	if err := e.ticker.Submit(ctx, func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Step advances simulated time by dt. It must be called from the logic
// goroutine, or before Start.
func (e *Engine) Step(dt time.Duration) {
	e.step(dt)
}

func (e *Engine) step(dt time.Duration) {
	e.scheduler.Advance(dt)
}

// Now returns the simulated mission time.
func (e *Engine) Now() time.Duration {
	return e.scheduler.Now()
}

// Items exposes the item system. Logic goroutine only.
func (e *Engine) Items() *ItemSystem {
	return e.itemSystem
}

// Registry returns the template registry.
func (e *Engine) Registry() *item.Registry {
	return e.registry
}

// GetEventLog exposes the event log.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// RegisterPlayer adds a player to the mission.
func (e *Engine) RegisterPlayer(ctx context.Context, p *player.Player) error {
	return e.Do(ctx, func() error {
		e.players[p.ID] = p
		e.logger.Info("Player registered with engine: " + p.ID)
		return nil
	})
}

// AttachClient binds a network client to a player so pickups notify it.
func (e *Engine) AttachClient(ctx context.Context, playerID, clientID string) error {
	return e.Do(ctx, func() error {
		p, err := e.player(playerID)
		if err != nil {
			return err
		}
		p.ClientID = clientID
		return nil
	})
}

// DetachClient unbinds clientID from the player. It is a no-op when the
// player has since attached another client.
func (e *Engine) DetachClient(ctx context.Context, playerID, clientID string) error {
	return e.Do(ctx, func() error {
		p, err := e.player(playerID)
		if err != nil {
			return err
		}
		if p.ClientID == clientID {
			p.ClientID = ""
		}
		return nil
	})
}

// Inventory returns a copy of a player's inventory.
func (e *Engine) Inventory(ctx context.Context, playerID string) (map[string]int, error) {
	var out map[string]int
	err := e.Do(ctx, func() error {
		p, err := e.player(playerID)
		if err != nil {
			return err
		}
		out = make(map[string]int, len(p.Items))
		for k, v := range p.Items {
			out[k] = v
		}
		return nil
	})
	return out, err
}

// Players returns copies of every registered player, sorted by ID.
func (e *Engine) Players(ctx context.Context) ([]player.Player, error) {
	var out []player.Player
	err := e.Do(ctx, func() error {
		for _, p := range e.players {
			cp := *p
			cp.Items = make(map[string]int, len(p.Items))
			for k, v := range p.Items {
				cp.Items[k] = v
			}
			out = append(out, cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// Throw drops amount of a held template from the player into the world.
// The player must hold at least one, and cannot throw more than they hold.
// A nil view with nil error means nothing was thrown.
func (e *Engine) Throw(ctx context.Context, playerID, templateName string, amount *int) (*ItemView, error) {
	var view *ItemView
	err := e.Do(ctx, func() error {
		p, err := e.player(playerID)
		if err != nil {
			return err
		}
		t, err := e.registry.Get(templateName)
		if err != nil {
			return err
		}
		held := p.Inventory(t)
		if held <= 0 {
			return fmt.Errorf("%w: %s holds no %s", ErrEmptyInventory, playerID, templateName)
		}
		if amount != nil && *amount > held {
			amount = item.Int(held)
		}
		if inst := e.itemSystem.Template(t).OnThrow(p, amount); inst != nil {
			view = e.view(inst)
		}
		return nil
	})
	return view, err
}

// Pickup lets the player collect a world item. It reports whether anything
// was picked up.
func (e *Engine) Pickup(ctx context.Context, playerID, itemID string) (bool, error) {
	var ok bool
	err := e.Do(ctx, func() error {
		p, err := e.player(playerID)
		if err != nil {
			return err
		}
		inst, err := e.itemSystem.Lookup(itemID)
		if err != nil {
			return err
		}
		ok = e.itemSystem.Template(inst.Template).OnPickup(inst, p, nil)
		return nil
	})
	return ok, err
}

// Place creates an editor item of the template and adds it to the mission.
func (e *Engine) Place(ctx context.Context, templateName string) (*ItemView, error) {
	var view *ItemView
	err := e.Do(ctx, func() error {
		t, err := e.registry.Get(templateName)
		if err != nil {
			return err
		}
		inst := e.itemSystem.Template(t).Create()
		e.itemSystem.Place(inst)
		view = e.view(inst)
		return nil
	})
	return view, err
}

// Item returns the current state of a world item.
func (e *Engine) Item(ctx context.Context, itemID string) (*ItemView, error) {
	var view *ItemView
	err := e.Do(ctx, func() error {
		inst, err := e.itemSystem.Lookup(itemID)
		if err != nil {
			return err
		}
		view = e.view(inst)
		return nil
	})
	return view, err
}

// WorldItems returns the state of every world item.
func (e *Engine) WorldItems(ctx context.Context) ([]ItemView, error) {
	var out []ItemView
	err := e.Do(ctx, func() error {
		for _, inst := range e.itemSystem.Instances() {
			out = append(out, *e.view(inst))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// EndMission deletes every object in the mission group.
func (e *Engine) EndMission(ctx context.Context) (int, error) {
	var n int
	err := e.Do(ctx, func() error {
		n = e.itemSystem.MissionGroup().Clear()
		e.logger.Info(fmt.Sprintf("Mission ended, %d objects removed", n))
		return nil
	})
	return n, err
}

func (e *Engine) player(id string) (*player.Player, error) {
	p, ok := e.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	return p, nil
}

func (e *Engine) view(inst *item.Instance) *ItemView {
	v := &ItemView{
		ID:       inst.ID,
		Template: inst.Template.Name,
		HasCount: inst.Count != nil,
		Static:   inst.Static,
		Rotate:   inst.Rotate,
		Rotation: inst.Rotation.String(),
		Hidden:   inst.Hidden,
		Opacity:  inst.Fade.Opacity(e.scheduler.Now()),
		Deleted:  inst.Deleted,
	}
	v.Count, _ = inst.EffectiveCount()
	return v
}
