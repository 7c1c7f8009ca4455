package registration

// Step is the wizard position.
type Step int

const (
	StepPersonalInfo Step = iota
	StepAddress
	StepSecurity
)

// LastStep is the step that submits instead of advancing.
const LastStep = StepSecurity

// Steps lists the wizard steps in order.
var Steps = []Step{StepPersonalInfo, StepAddress, StepSecurity}

func (s Step) String() string {
	switch s {
	case StepPersonalInfo:
		return "personal_info"
	case StepAddress:
		return "address"
	case StepSecurity:
		return "security"
	default:
		return "unknown"
	}
}

// Title is the heading shown for the step.
func (s Step) Title() string {
	switch s {
	case StepPersonalInfo:
		return "Personal Info"
	case StepAddress:
		return "Address"
	case StepSecurity:
		return "Security"
	default:
		return ""
	}
}

// Phase is the submission status of the form.
type Phase int

const (
	// PhaseEditing accepts edits and navigation.
	PhaseEditing Phase = iota
	// PhaseSubmitting waits for the registrar; the form is locked.
	PhaseSubmitting
	// PhaseSucceeded shows the success screen until the redirect.
	PhaseSucceeded
)

func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// State is the whole wizard state for one session. Reduce never mutates a
// State it is given.
type State struct {
	Draft  Draft
	Step   Step
	Errors Errors
	Phase  Phase

	// FormError is a form-level message set when registration is rejected.
	FormError string

	// Account is set once registration succeeded.
	Account Account
}

// NewState returns the initial state: an empty draft on the first step.
func NewState() State {
	return State{Errors: Errors{}}
}

// Editable reports whether the form accepts edits and navigation.
func (s State) Editable() bool {
	return s.Phase == PhaseEditing
}

// Action is an input to Reduce.
type Action interface {
	action()
}

// EditText replaces a text field.
type EditText struct {
	Field Field
	Value string
}

// SetConsent sets the terms checkbox.
type SetConsent struct {
	Agreed bool
}

// Advance moves to the next step if the current one validates.
type Advance struct{}

// Retreat moves to the previous step without validating.
type Retreat struct{}

// Submit validates the draft and, if valid, starts submitting.
type Submit struct{}

// RegistrationSucceeded reports the registrar accepted the draft.
type RegistrationSucceeded struct {
	Account Account
}

// RegistrationFailed reports the registrar rejected the draft.
type RegistrationFailed struct {
	Reason string
}

func (EditText) action()              {}
func (SetConsent) action()            {}
func (Advance) action()               {}
func (Retreat) action()               {}
func (Submit) action()                {}
func (RegistrationSucceeded) action() {}
func (RegistrationFailed) action()    {}

// Reduce returns the state that results from applying a to s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case EditText:
		if !s.Editable() || !a.Field.IsText() {
			return s
		}
		d, err := s.Draft.With(a.Field, a.Value)
		if err != nil {
			return s
		}
		s.Draft = d
		s.Errors = s.Errors.Without(a.Field)

	case SetConsent:
		if !s.Editable() {
			return s
		}
		s.Draft = s.Draft.WithConsent(a.Agreed)
		s.Errors = s.Errors.Without(FieldAgreeTerms)

	case Advance:
		if !s.Editable() || s.Step >= LastStep {
			return s
		}
		if errs := Validate(s.Step, s.Draft); len(errs) > 0 {
			s.Errors = errs
			return s
		}
		s.Step++
		s.Errors = Errors{}

	case Retreat:
		if !s.Editable() || s.Step <= StepPersonalInfo {
			return s
		}
		s.Step--

	case Submit:
		if !s.Editable() || s.Step != LastStep {
			return s
		}
		if errs := Validate(LastStep, s.Draft); len(errs) > 0 {
			s.Errors = errs
			return s
		}
		// Earlier steps were validated when left, but their fields may have
		// been edited after a retreat.
		if step, errs := ValidateAll(s.Draft); len(errs) > 0 {
			s.Step = step
			s.Errors = errs
			return s
		}
		s.Errors = Errors{}
		s.FormError = ""
		s.Phase = PhaseSubmitting

	case RegistrationSucceeded:
		if s.Phase != PhaseSubmitting {
			return s
		}
		s.Phase = PhaseSucceeded
		s.Account = a.Account

	case RegistrationFailed:
		if s.Phase != PhaseSubmitting {
			return s
		}
		s.Phase = PhaseEditing
		s.FormError = a.Reason
	}
	return s
}
