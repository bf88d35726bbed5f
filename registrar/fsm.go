package registrar

import (
	"context"
	"log/slog"
	"reflect"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"
)

// State is a stage of REGISTER handling.
type State string

const (
	StateStart            State = "Start"
	StateIdentityResolved State = "IdentityResolved"
	StateDomainChecked    State = "DomainChecked"
	StateContactResolved  State = "ContactResolved"
	StateAuthenticated    State = "Authenticated"
	StateBound            State = "Bound"
	StateRejected         State = "Rejected"
)

type trigger string

const (
	triggerResolve        trigger = "resolve"
	triggerCheckDomain    trigger = "check_domain"
	triggerResolveContact trigger = "resolve_contact"
	triggerAuthenticate   trigger = "authenticate"
	triggerBind           trigger = "bind"
	triggerReject         trigger = "reject"
)

// machine drives one registration attempt. States advance strictly in order,
// every non-terminal state can be left for StateRejected.
type machine struct {
	sm     *stateless.StateMachine
	reason Reason
}

func newMachine(log *slog.Logger) *machine {
	m := &machine{sm: stateless.NewStateMachine(StateStart)}
	m.sm.SetTriggerParameters(triggerReject, reflect.TypeFor[Reason]())

	steps := []struct {
		from State
		trg  trigger
		to   State
	}{
		{StateStart, triggerResolve, StateIdentityResolved},
		{StateIdentityResolved, triggerCheckDomain, StateDomainChecked},
		{StateDomainChecked, triggerResolveContact, StateContactResolved},
		{StateContactResolved, triggerAuthenticate, StateAuthenticated},
		{StateAuthenticated, triggerBind, StateBound},
	}
	for _, s := range steps {
		m.sm.Configure(s.from).
			Permit(s.trg, s.to).
			Permit(triggerReject, StateRejected)
	}
	m.sm.Configure(StateRejected).
		OnEntryFrom(triggerReject, func(_ context.Context, args ...any) error {
			m.reason = args[0].(Reason) //nolint:forcetypeassert
			return nil
		})

	m.sm.OnTransitioned(func(ctx context.Context, t stateless.Transition) {
		log.LogAttrs(ctx, slog.LevelDebug, "registration state changed",
			slog.Any("from", t.Source),
			slog.Any("to", t.Destination),
			slog.Any("trigger", t.Trigger),
		)
	})
	return m
}

func (m *machine) fire(ctx context.Context, trg trigger) error {
	return errtrace.Wrap(m.sm.FireCtx(ctx, trg))
}

func (m *machine) reject(ctx context.Context, reason Reason) error {
	return errtrace.Wrap(m.sm.FireCtx(ctx, triggerReject, reason))
}

func (m *machine) state() State {
	return m.sm.MustState().(State) //nolint:forcetypeassert
}
