package signup

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/gabrielmiguelok/signupkit/pkg/core"
	"github.com/gabrielmiguelok/signupkit/pkg/registration"
)

type inputSpec struct {
	field        registration.Field
	label        string
	kind         string
	placeholder  string
	autocomplete string
}

var stepInputs = map[registration.Step][]inputSpec{
	registration.StepPersonalInfo: {
		{registration.FieldFirstName, "First name", "text", "Jane", "given-name"},
		{registration.FieldLastName, "Last name", "text", "Doe", "family-name"},
		{registration.FieldEmail, "Email", "email", "you@example.com", "email"},
		{registration.FieldPhone, "Phone", "tel", "+1 555 0100", "tel"},
	},
	registration.StepAddress: {
		{registration.FieldAddress, "Street address", "text", "221B Baker Street", "street-address"},
		{registration.FieldCity, "City", "text", "London", "address-level2"},
	},
	registration.StepSecurity: {
		{registration.FieldPassword, "Password", "password", "At least 6 characters", "new-password"},
		{registration.FieldConfirmPassword, "Confirm password", "password", "Repeat your password", "new-password"},
	},
}

// Render returns the wizard markup. The router sends it whole on every
// change and the client swaps it into the live root.
func (w *Wizard) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, out io.Writer) error {
		_, err := io.WriteString(out, w.renderWizard())
		return err
	})
}

func (w *Wizard) renderWizard() string {
	s := w.state

	var card string
	if s.Phase == registration.PhaseSucceeded {
		card = w.renderSuccess()
	} else {
		card = w.renderStep()
	}

	return fmt.Sprintf(`<div class="wizard-container" data-live-view="%s" data-step="%d" data-phase="%s">
<div class="wizard-header">
	<h1>Create your account</h1>
	<p>Step %d of %d: %s</p>
</div>
%s
<div class="wizard-card">
%s
</div>
<p class="form-footer">Already have an account? <a href="%s">Sign in</a></p>
</div>`,
		ComponentName, s.Step, s.Phase,
		int(s.Step)+1, len(registration.Steps), s.Step.Title(),
		w.renderStepIndicator(),
		card,
		html.EscapeString(w.cfg.LoginPath),
	)
}

func (w *Wizard) renderStepIndicator() string {
	var sb strings.Builder
	sb.WriteString(`<ol class="wizard-steps">`)
	for _, step := range registration.Steps {
		class := ""
		current := ""
		switch {
		case step == w.state.Step && w.state.Phase != registration.PhaseSucceeded:
			class = "active"
			current = ` aria-current="step"`
		case step < w.state.Step || w.state.Phase == registration.PhaseSucceeded:
			class = "completed"
		}
		fmt.Fprintf(&sb, `<li class="wizard-step %s"%s>%d. %s</li>`, class, current, int(step)+1, step.Title())
	}
	sb.WriteString(`</ol>`)
	return sb.String()
}

func (w *Wizard) renderStep() string {
	s := w.state
	locked := s.Phase == registration.PhaseSubmitting

	var sb strings.Builder
	fmt.Fprintf(&sb, `<h2 class="wizard-card-title">%s</h2>`+"\n", s.Step.Title())

	if s.FormError != "" {
		fmt.Fprintf(&sb, `<div class="form-alert" role="alert">%s</div>`+"\n", html.EscapeString(s.FormError))
	}

	submitEvent := EventNext
	if s.Step == registration.LastStep {
		submitEvent = EventSubmit
	}
	fmt.Fprintf(&sb, `<form lv-submit="%s" novalidate>`+"\n", submitEvent)

	for _, in := range stepInputs[s.Step] {
		sb.WriteString(w.renderInput(in, locked))
	}
	if s.Step == registration.StepSecurity {
		sb.WriteString(w.renderConsent(locked))
	}

	sb.WriteString(`<div class="wizard-actions">`)
	if s.Step > registration.StepPersonalInfo {
		fmt.Fprintf(&sb, `<button type="button" class="btn btn-secondary" lv-click="%s"%s>Back</button>`, EventBack, disabledAttr(locked))
	} else {
		sb.WriteString(`<span></span>`)
	}
	switch {
	case s.Step < registration.LastStep:
		sb.WriteString(`<button type="submit" class="btn btn-primary">Next</button>`)
	case locked:
		sb.WriteString(`<button type="submit" class="btn btn-primary" disabled aria-busy="true">Creating account...</button>`)
	default:
		sb.WriteString(`<button type="submit" class="btn btn-primary">Create account</button>`)
	}
	sb.WriteString("</div>\n</form>")

	return sb.String()
}

func (w *Wizard) renderInput(in inputSpec, locked bool) string {
	id := string(in.field)
	msg, invalid := w.state.Errors[in.field]

	class := "form-input"
	aria := ""
	if invalid {
		class += " invalid"
		aria = fmt.Sprintf(` aria-invalid="true" aria-describedby="%s-error"`, id)
	}

	return fmt.Sprintf(`<div class="form-group">
	<label class="form-label" for="%[1]s">%[2]s</label>
	<input id="%[1]s" name="%[1]s" type="%[3]s" class="%[4]s" placeholder="%[5]s" autocomplete="%[6]s" value="%[7]s" lv-input="%[8]s"%[9]s%[10]s>
	%[11]s
</div>
`,
		id, in.label, in.kind, class, html.EscapeString(in.placeholder), in.autocomplete,
		html.EscapeString(w.state.Draft.Value(in.field)), EventInput, aria, disabledAttr(locked),
		fieldError(in.field, msg, invalid),
	)
}

func (w *Wizard) renderConsent(locked bool) string {
	field := registration.FieldAgreeTerms
	msg, invalid := w.state.Errors[field]

	checked := ""
	if w.state.Draft.AgreeTerms {
		checked = " checked"
	}

	return fmt.Sprintf(`<div class="form-group">
	<label class="form-check"><input id="%[1]s" name="%[1]s" type="checkbox" lv-change="%[2]s"%[3]s%[4]s> I agree to the terms and conditions</label>
	%[5]s
</div>
`, field, EventChange, checked, disabledAttr(locked), fieldError(field, msg, invalid))
}

func (w *Wizard) renderSuccess() string {
	name := strings.TrimSpace(w.state.Account.FirstName)
	greeting := "Registration successful!"
	if name != "" {
		greeting = fmt.Sprintf("Welcome, %s! Registration successful!", html.EscapeString(name))
	}

	return fmt.Sprintf(`<div class="wizard-success" role="status">
	<h2>%s</h2>
	<p>Redirecting you to sign in...</p>
</div>`, greeting)
}

func fieldError(field registration.Field, msg string, invalid bool) string {
	if !invalid {
		return ""
	}
	return fmt.Sprintf(`<span id="%s-error" class="form-error">%s</span>`, field, html.EscapeString(msg))
}

func disabledAttr(disabled bool) string {
	if disabled {
		return " disabled"
	}
	return ""
}
