package orchestration

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apperrors "line-membership-bot/internal/common/errors"
	"line-membership-bot/internal/common/logger"

	"github.com/google/uuid"
)

// Client exposes the engine's operations: get status, start new, raise
// event, terminate. All state lives in the Store; the client itself only
// holds registered definitions and the per-user locks.
//
// Operations for one user are serialized by a keyed mutex, so a start and
// a signal racing for the same user resolve deterministically. Callers can
// still race at a higher level (read-check-then-start across two events);
// ErrCodeAlreadyRunning is the safety net for that.
type Client struct {
	store Store

	defsMu sync.RWMutex
	defs   map[string]*Definition

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewClient(store Store) *Client {
	return &Client{
		store: store,
		defs:  make(map[string]*Definition),
		locks: make(map[string]*sync.Mutex),
	}
}

// Register adds a workflow definition. Registering the same name twice
// replaces the earlier definition.
func (c *Client) Register(def *Definition) {
	c.defsMu.Lock()
	defer c.defsMu.Unlock()
	c.defs[def.Name] = def
}

func (c *Client) definition(name string) (*Definition, bool) {
	c.defsMu.RLock()
	defer c.defsMu.RUnlock()
	d, ok := c.defs[name]
	return d, ok
}

// userLock returns the mutex serializing operations for one user.
// Locks stay in the map for the life of the process.
func (c *Client) userLock(userID string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	mu, ok := c.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		c.locks[userID] = mu
	}
	return mu
}

// GetStatus returns the current instance for a user, or nil when the user
// has never started one (the NotStarted case).
func (c *Client) GetStatus(ctx context.Context, userID string) (*Instance, error) {
	inst, err := c.store.GetInstance(ctx, userID)
	if apperrors.IsCode(err, apperrors.ErrCodeInstanceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// StartNew creates an instance for the named workflow at its entry step.
// Fails with ErrCodeAlreadyRunning while an active instance exists for
// the user; a finished instance is replaced.
func (c *Client) StartNew(ctx context.Context, workflow, userID string) (*Instance, error) {
	def, ok := c.definition(workflow)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "unknown workflow "+workflow)
	}

	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	current, err := c.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.RuntimeStatus.Active() {
		return nil, apperrors.New(apperrors.ErrCodeAlreadyRunning, "instance already active for user")
	}

	now := time.Now()
	inst := &Instance{
		ID:            uuid.New().String(),
		UserID:        userID,
		Workflow:      def.Name,
		RuntimeStatus: StatusRunning,
		Step:          def.Entry,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.store.SaveInstance(ctx, inst); err != nil {
		return nil, err
	}

	logger.Info().
		Str("workflow", def.Name).
		Str("user_id", userID).
		Str("instance_id", inst.ID).
		Msg("Workflow instance started")
	return inst, nil
}

// RaiseEvent delivers a named signal to the instance waiting on it. A
// signal for an absent instance, an inactive instance, or an event name
// the current step is not waiting on is dropped silently, never queued.
func (c *Client) RaiseEvent(ctx context.Context, userID, eventName string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	inst, err := c.GetStatus(ctx, userID)
	if err != nil {
		return err
	}
	if inst == nil || !inst.RuntimeStatus.Active() {
		logger.Debug().
			Str("user_id", userID).
			Str("event", eventName).
			Msg("Signal dropped: no active instance")
		return nil
	}

	def, ok := c.definition(inst.Workflow)
	if !ok {
		return apperrors.New(apperrors.ErrCodeNotFound, "unknown workflow "+inst.Workflow)
	}
	step, ok := def.step(inst.Step)
	if !ok || step.Event != eventName {
		logger.Debug().
			Str("user_id", userID).
			Str("event", eventName).
			Str("step", inst.Step).
			Msg("Signal dropped: instance not waiting on event")
		return nil
	}

	next, err := step.Handler(ctx, inst, data)
	if err != nil {
		inst.RuntimeStatus = StatusFailed
		inst.Reason = err.Error()
		inst.UpdatedAt = time.Now()
		if updateErr := c.store.UpdateInstance(ctx, inst); updateErr != nil {
			logger.Error().Err(updateErr).
				Str("instance_id", inst.ID).
				Msg("Failed to persist failed instance")
		}
		return err
	}

	inst.Step = next
	if next == "" {
		inst.RuntimeStatus = StatusCompleted
	}
	inst.UpdatedAt = time.Now()
	return c.store.UpdateInstance(ctx, inst)
}

// Terminate ends the instance immediately; further signals to it are
// dropped. Fails with ErrCodeInstanceNotFound when the user has no
// instance; terminating an already finished instance is a no-op.
func (c *Client) Terminate(ctx context.Context, userID, reason string) error {
	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	inst, err := c.GetStatus(ctx, userID)
	if err != nil {
		return err
	}
	if inst == nil {
		return apperrors.New(apperrors.ErrCodeInstanceNotFound, "no instance for user")
	}
	if !inst.RuntimeStatus.Active() {
		return nil
	}

	inst.RuntimeStatus = StatusTerminated
	inst.Reason = reason
	inst.UpdatedAt = time.Now()
	if err := c.store.UpdateInstance(ctx, inst); err != nil {
		return err
	}

	logger.Info().
		Str("user_id", userID).
		Str("instance_id", inst.ID).
		Str("reason", reason).
		Msg("Workflow instance terminated")
	return nil
}
