package registration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/gabrielmiguelok/signupkit/pkg/logging"
)

// Submission lifecycle states.
const (
	SubmissionPending     = "pending"
	SubmissionRegistering = "registering"
	SubmissionRedirecting = "redirecting"
	SubmissionCompleted   = "completed"
	SubmissionRejected    = "rejected"
	SubmissionCancelled   = "cancelled"
)

// Submission lifecycle events.
const (
	eventStart      = "start"
	eventRegistered = "registered"
	eventReject     = "reject"
	eventRedirect   = "redirect"
	eventCancel     = "cancel"
)

// Submission errors.
var (
	ErrSubmissionStarted   = errors.New("submission already started")
	ErrSubmissionCancelled = errors.New("submission cancelled")
)

// Messages posted by a Submission to its owner.
type (
	// Registered reports the registrar accepted the draft.
	Registered struct{ Account Account }

	// Rejected reports the registrar refused the draft.
	Rejected struct{ Reason string }

	// NavigateTo asks the owner to send the client to Path.
	NavigateTo struct{ Path string }
)

// Poster delivers messages to the owning session, usually core.Socket.
type Poster interface {
	SendInfo(msg any) error
}

// SubmissionConfig configures a Submission.
type SubmissionConfig struct {
	// RedirectDelay is the pause between success and NavigateTo.
	RedirectDelay time.Duration

	// LoginPath is the NavigateTo destination.
	LoginPath string

	Logger logging.Logger
}

// Submission runs one registration attempt in the background: it calls the
// registrar, posts the outcome, waits the redirect delay and posts a
// navigation request. Cancel stops it; nothing is posted after Cancel returns.
type Submission struct {
	registrar Registrar
	owner     Poster
	cfg       SubmissionConfig
	logger    logging.Logger

	machine   *fsm.FSM
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	cancelled bool
	done      chan struct{}

	// mu serializes transitions with delivery so Cancel cannot interleave.
	mu sync.Mutex
}

// NewSubmission creates a pending submission.
func NewSubmission(registrar Registrar, owner Poster, cfg SubmissionConfig) *Submission {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Submission{
		registrar: registrar,
		owner:     owner,
		cfg:       cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.machine = fsm.NewFSM(
		SubmissionPending,
		fsm.Events{
			{Name: eventStart, Src: []string{SubmissionPending}, Dst: SubmissionRegistering},
			{Name: eventRegistered, Src: []string{SubmissionRegistering}, Dst: SubmissionRedirecting},
			{Name: eventReject, Src: []string{SubmissionRegistering}, Dst: SubmissionRejected},
			{Name: eventRedirect, Src: []string{SubmissionRedirecting}, Dst: SubmissionCompleted},
			{Name: eventCancel, Src: []string{SubmissionPending, SubmissionRegistering, SubmissionRedirecting}, Dst: SubmissionCancelled},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.logger.Debug("submission transition",
					logging.String("event", e.Event),
					logging.String("from", e.Src),
					logging.String("to", e.Dst),
				)
			},
		},
	)
	return s
}

// Start launches the background attempt for d.
func (s *Submission) Start(d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return ErrSubmissionCancelled
	}
	if err := s.machine.Event(context.Background(), eventStart); err != nil {
		return ErrSubmissionStarted
	}
	s.started = true

	go s.run(d)
	return nil
}

func (s *Submission) run(d Draft) {
	defer close(s.done)

	account, err := s.registrar.Register(s.ctx, d)
	if s.ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Info("registration rejected", logging.Err(err))
		s.deliver(eventReject, Rejected{Reason: rejectionReason(err)})
		return
	}

	s.logger.Info("registration succeeded", logging.String("account_id", account.ID.String()))
	if !s.deliver(eventRegistered, Registered{Account: account}) {
		return
	}

	timer := time.NewTimer(s.cfg.RedirectDelay)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return
	case <-timer.C:
	}

	s.deliver(eventRedirect, NavigateTo{Path: s.cfg.LoginPath})
}

// deliver applies event and posts msg as one step. It reports false if the
// submission was cancelled first.
func (s *Submission) deliver(event string, msg any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return false
	}
	if err := s.machine.Event(context.Background(), event); err != nil {
		s.logger.Error("submission transition failed", logging.String("event", event), logging.Err(err))
		return false
	}
	if err := s.owner.SendInfo(msg); err != nil {
		s.logger.Warn("submission outcome not delivered", logging.String("event", event), logging.Err(err))
		return false
	}
	return true
}

// Cancel stops the attempt. It is safe to call at any time and more than once.
func (s *Submission) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}
	s.cancelled = true
	s.cancel()

	if s.machine.Can(eventCancel) {
		from := s.machine.Current()
		if err := s.machine.Event(context.Background(), eventCancel); err != nil {
			s.logger.Error("submission transition failed", logging.String("event", eventCancel), logging.Err(err))
		} else {
			s.logger.Info("submission cancelled", logging.String("from", from))
		}
	}

	// A never-started submission has no goroutine to close done.
	if !s.started {
		close(s.done)
	}
}

// State returns the current lifecycle state.
func (s *Submission) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// Done is closed once the background attempt has finished, or at Cancel for
// a submission that never started.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}
