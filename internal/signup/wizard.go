// Package signup is the registration wizard live view. It holds one
// registration.State per session, feeds client events through
// registration.Reduce and drives a registration.Submission when the last
// step is submitted.
package signup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/logging"
	"github.com/gabrielmiguelok/signupkit/pkg/registration"
)

// ComponentName identifies the wizard in logs and markup.
const ComponentName = "signup-wizard"

// Client events handled by the wizard.
const (
	EventInput  = "input"
	EventChange = "change"
	EventNext   = "next"
	EventBack   = "back"
	EventSubmit = "submit"
)

// Assign keys published on the socket after every update.
const (
	AssignStep  = "step"
	AssignPhase = "phase"
)

var (
	// ErrUnknownEvent is returned for events the wizard does not handle.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrInvalidValue is returned when an input event carries a value of the
	// wrong type for its field.
	ErrInvalidValue = errors.New("invalid field value")
)

// Options configures a Wizard.
type Options struct {
	// Registrar defaults to a SimulatedRegistrar waiting Config.SubmitDelay.
	Registrar registration.Registrar

	Config core.RegistrationConfig

	// Logger defaults to the logger carried by the mount context.
	Logger logging.Logger
}

// Wizard is the registration live component.
type Wizard struct {
	core.BaseComponent

	state      registration.State
	registrar  registration.Registrar
	cfg        core.RegistrationConfig
	baseLogger logging.Logger
	logger     logging.Logger
	submission *registration.Submission
}

// New creates a wizard. Zero config values fall back to
// core.DefaultRegistrationConfig.
func New(opts Options) *Wizard {
	cfg := opts.Config
	def := core.DefaultRegistrationConfig()
	if cfg.SubmitDelay <= 0 {
		cfg.SubmitDelay = def.SubmitDelay
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = def.RedirectDelay
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}

	registrar := opts.Registrar
	if registrar == nil {
		registrar = registration.SimulatedRegistrar{Delay: cfg.SubmitDelay}
	}

	return &Wizard{
		state:     registration.NewState(),
		registrar: registrar,
		cfg:        cfg,
		baseLogger: opts.Logger,
		logger:     logging.NopLogger{},
	}
}

// Factory returns a constructor suitable for router.Live. Each session gets
// its own Wizard.
func Factory(opts Options) func() core.Component {
	return func() core.Component {
		return New(opts)
	}
}

// Name returns the component name.
func (w *Wizard) Name() string {
	return ComponentName
}

// State returns the current wizard state.
func (w *Wizard) State() registration.State {
	return w.state
}

// Mount starts a fresh draft on the first step.
func (w *Wizard) Mount(ctx context.Context, params core.Params, session core.Session) error {
	base := w.baseLogger
	if base == nil {
		base = logging.L(ctx)
	}
	w.logger = base.With(logging.String("component", ComponentName))

	w.state = registration.NewState()
	w.publish()
	return nil
}

// HandleEvent maps client events onto reducer actions.
func (w *Wizard) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case EventInput, EventChange:
		action, err := editAction(payload)
		if err != nil {
			return err
		}
		w.apply(action)

	case EventNext:
		w.apply(registration.Advance{})

	case EventBack:
		w.apply(registration.Retreat{})

	case EventSubmit:
		w.apply(registration.Submit{})
		if w.state.Phase == registration.PhaseSubmitting && w.submission == nil {
			w.startSubmission()
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return nil
}

// HandleInfo applies messages posted by the running submission.
func (w *Wizard) HandleInfo(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case registration.Registered:
		w.apply(registration.RegistrationSucceeded{Account: m.Account})

	case registration.Rejected:
		w.submission = nil
		w.apply(registration.RegistrationFailed{Reason: m.Reason})

	case registration.NavigateTo:
		w.submission = nil
		w.logger.Info("redirecting", logging.String("to", m.Path))
		if err := w.Socket().Redirect(m.Path); err != nil {
			return fmt.Errorf("redirect to %s: %w", m.Path, err)
		}
	}
	return nil
}

// Terminate cancels a pending submission so nothing is posted to a closed
// session.
func (w *Wizard) Terminate(ctx context.Context, reason core.TerminateReason) error {
	if w.submission != nil {
		w.submission.Cancel()
		w.submission = nil
	}
	return nil
}

func (w *Wizard) apply(action registration.Action) {
	prev := w.state
	w.state = registration.Reduce(prev, action)

	if w.state.Step != prev.Step {
		w.logger.Debug("step changed",
			logging.String("from", prev.Step.String()),
			logging.String("to", w.state.Step.String()),
		)
	}
	if w.state.Phase != prev.Phase {
		w.logger.Info("phase changed",
			logging.String("from", prev.Phase.String()),
			logging.String("to", w.state.Phase.String()),
		)
	}
	w.publish()
}

func (w *Wizard) publish() {
	assigns := w.Assigns()
	assigns.Set(AssignStep, int(w.state.Step))
	assigns.Set(AssignPhase, w.state.Phase.String())
}

func (w *Wizard) startSubmission() {
	sub := registration.NewSubmission(w.registrar, w.Socket(), registration.SubmissionConfig{
		RedirectDelay: w.cfg.RedirectDelay,
		LoginPath:     w.cfg.LoginPath,
		Logger:        w.logger,
	})
	if err := sub.Start(w.state.Draft); err != nil {
		w.logger.Error("submission not started", logging.Err(err))
		w.apply(registration.RegistrationFailed{Reason: "Registration failed. Please try again."})
		return
	}
	w.submission = sub
}

// editAction builds the reducer action for an input event payload of the
// form {"field": name, "value": v}.
func editAction(payload map[string]any) (registration.Action, error) {
	name, _ := payload["field"].(string)
	field, err := registration.ParseField(name)
	if err != nil {
		return nil, err
	}

	if field == registration.FieldAgreeTerms {
		agreed, ok := parseBool(payload["value"])
		if !ok {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, field, payload["value"])
		}
		return registration.SetConsent{Agreed: agreed}, nil
	}

	switch v := payload["value"].(type) {
	case string:
		return registration.EditText{Field: field, Value: v}, nil
	case nil:
		return registration.EditText{Field: field}, nil
	default:
		return nil, fmt.Errorf("%w: %s=%v", ErrInvalidValue, field, v)
	}
}

// parseBool accepts JSON booleans and the string forms browsers send for
// checkboxes.
func parseBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case nil:
		return false, true
	case string:
		switch strings.ToLower(b) {
		case "true", "on", "1", "yes":
			return true, true
		case "false", "off", "0", "no", "":
			return false, true
		}
	}
	return false, false
}
