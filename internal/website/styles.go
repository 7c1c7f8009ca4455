package website

import (
	"fmt"
	"sort"
	"strings"
)

// Colors is the page palette. Text colors keep a 4.5:1 contrast ratio on bg
// and bgAlt.
var Colors = map[string]string{
	"bg":        "#0F172A",
	"bgAlt":     "#1E293B",
	"bgInput":   "#0B1222",
	"text":      "#F8FAFC",
	"textMuted": "#CBD5E1",
	"textDim":   "#94A3B8",
	"primary":   "#A78BFA",
	"success":   "#34D399",
	"danger":    "#F87171",
	"border":    "#334155",
}

// FontFamily is the system font stack.
var FontFamily = `system-ui, -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif`

// StyleOption customizes the generated CSS.
type StyleOption func(*styleConfig)

type styleConfig struct {
	customColors      map[string]string
	includeAnimations bool
}

// WithCustomColors overrides palette entries.
func WithCustomColors(colors map[string]string) StyleOption {
	return func(cfg *styleConfig) {
		for k, v := range colors {
			cfg.customColors[k] = v
		}
	}
}

// WithAnimations toggles the transition keyframes.
func WithAnimations(include bool) StyleOption {
	return func(cfg *styleConfig) {
		cfg.includeAnimations = include
	}
}

// RenderStyles generates the page CSS.
func RenderStyles(opts ...StyleOption) string {
	cfg := &styleConfig{
		customColors:      make(map[string]string),
		includeAnimations: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	colors := make(map[string]string, len(Colors))
	for k, v := range Colors {
		colors[k] = v
	}
	for k, v := range cfg.customColors {
		colors[k] = v
	}

	var sb strings.Builder
	sb.WriteString(cssReset())
	sb.WriteString(cssVariables(colors))
	sb.WriteString(cssBase())
	sb.WriteString(cssButtons())
	sb.WriteString(cssForm())
	sb.WriteString(cssWizard())
	if cfg.includeAnimations {
		sb.WriteString(cssAnimations())
	}
	sb.WriteString(cssAccessibility())
	sb.WriteString(cssResponsive())
	return sb.String()
}

func cssReset() string {
	return `
*,*::before,*::after{box-sizing:border-box;margin:0;padding:0}
body{line-height:1.6;-webkit-font-smoothing:antialiased}
input,button{font:inherit}
a{color:inherit}
`
}

func cssVariables(colors map[string]string) string {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]string, 0, len(names))
	for _, name := range names {
		vars = append(vars, fmt.Sprintf("--color-%s:%s", name, colors[name]))
	}
	return fmt.Sprintf(`:root{%s;--font-sans:%s}`, strings.Join(vars, ";"), FontFamily)
}

func cssBase() string {
	return `
body{font-family:var(--font-sans);background:var(--color-bg);color:var(--color-text);min-height:100vh}
h1{font-size:1.75rem;font-weight:800;letter-spacing:-0.02em}
h2{font-size:1.25rem;font-weight:700}
p{color:var(--color-textMuted)}
`
}

func cssButtons() string {
	// 44px minimum tap target.
	return `
.btn{display:inline-flex;align-items:center;justify-content:center;padding:0.75rem 1.25rem;font-weight:600;border-radius:0.5rem;border:none;cursor:pointer;min-height:2.75rem;width:100%;transition:all 0.2s ease}
.btn:disabled{opacity:0.6;cursor:not-allowed}
.btn-primary{background:#6D28D9;color:#FFFFFF}
.btn-primary:hover:not(:disabled){background:#5B21B6}
.btn-secondary{background:transparent;color:var(--color-text);border:1px solid var(--color-border)}
`
}

func cssForm() string {
	return `
.form-group{margin-bottom:1rem}
.form-label{display:block;font-size:0.875rem;font-weight:600;margin-bottom:0.35rem}
.form-input{width:100%;padding:0.65rem 0.8rem;border-radius:0.5rem;border:1px solid var(--color-border);background:var(--color-bgInput);color:var(--color-text)}
.form-input.invalid{border-color:var(--color-danger)}
.form-error{color:var(--color-danger);font-size:0.8rem;margin-top:0.25rem}
.form-alert{padding:0.75rem 1rem;border-radius:0.5rem;border:1px solid var(--color-danger);color:var(--color-danger);margin-bottom:1rem}
.form-check{display:flex;gap:0.5rem;align-items:center}
.form-footer{margin-top:1.25rem;text-align:center;font-size:0.875rem;color:var(--color-textDim)}
.form-footer a{color:var(--color-primary)}
`
}

func cssWizard() string {
	return `
.wizard-container{max-width:32rem;margin:0 auto;padding:2rem 1rem}
.wizard-header{text-align:center;margin-bottom:1.5rem}
.wizard-steps{display:flex;justify-content:space-between;gap:0.5rem;margin-bottom:1.5rem;list-style:none}
.wizard-step{flex:1;text-align:center;font-size:0.8rem;color:var(--color-textDim);padding-top:0.5rem;border-top:3px solid var(--color-border)}
.wizard-step.active{color:var(--color-text);border-color:var(--color-primary)}
.wizard-step.completed{color:var(--color-success);border-color:var(--color-success)}
.wizard-card{background:var(--color-bgAlt);border:1px solid var(--color-border);border-radius:1rem;padding:1.5rem}
.wizard-card-title{margin-bottom:1rem}
.wizard-actions{display:flex;flex-direction:column-reverse;gap:0.75rem;margin-top:1.25rem}
.wizard-success{text-align:center}
.wizard-success h2{color:var(--color-success);margin-bottom:0.5rem}
`
}

func cssAnimations() string {
	return `
@keyframes fadeIn{from{opacity:0;transform:translateY(8px)}to{opacity:1;transform:translateY(0)}}
@keyframes pulse{0%,100%{opacity:1}50%{opacity:0.5}}
.wizard-card{animation:fadeIn 0.3s ease}
.btn[aria-busy="true"]{animation:pulse 1.2s infinite}
@media(prefers-reduced-motion:reduce){*{animation-duration:0.01ms!important;animation-iteration-count:1!important;transition-duration:0.01ms!important}}
`
}

func cssAccessibility() string {
	return `
.sr-only{position:absolute;width:1px;height:1px;padding:0;margin:-1px;overflow:hidden;clip:rect(0,0,0,0);white-space:nowrap;border:0}
:focus-visible{outline:2px solid var(--color-primary);outline-offset:2px}
`
}

func cssResponsive() string {
	return `
@media(min-width:480px){
.btn{width:auto}
.wizard-actions{flex-direction:row;justify-content:space-between}
.wizard-card{padding:2rem}
}
`
}
