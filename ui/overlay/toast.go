package overlay

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ToastType identifies the kind of toast notification.
type ToastType int

const (
	ToastInfo ToastType = iota
	ToastSuccess
	ToastError
	ToastLoading
)

// AnimPhase is where a toast is in its slide-in, show, slide-out cycle.
type AnimPhase int

const (
	PhaseSlidingIn AnimPhase = iota
	PhaseVisible
	PhaseSlidingOut
)

const (
	InfoDismissAfter    = 3 * time.Second
	SuccessDismissAfter = 3 * time.Second
	ErrorDismissAfter   = 5 * time.Second

	MinToastWidth = 30
	MaxToastWidth = 60
	MaxToasts     = 5

	// TickInterval is how often the app should call Tick while toasts are active.
	TickInterval = 50 * time.Millisecond

	// settled is how close the spring must get to its target to end a slide.
	settled = 0.5
)

type toastKind struct {
	icon         string
	color        lipgloss.Color
	dismissAfter time.Duration
}

// Loading toasts render the shared spinner in place of an icon and stay
// until resolved.
var toastKinds = map[ToastType]toastKind{
	ToastInfo:    {icon: "▸", color: colorFoam, dismissAfter: InfoDismissAfter},
	ToastSuccess: {icon: "✓", color: colorFoam, dismissAfter: SuccessDismissAfter},
	ToastError:   {icon: "✗", color: colorLove, dismissAfter: ErrorDismissAfter},
	ToastLoading: {color: colorGold},
}

type toast struct {
	id    string
	typ   ToastType
	msg   string
	phase AnimPhase
	// shownAt is when the toast finished sliding in or was last refreshed.
	shownAt time.Time
	// ttl is zero for toasts that wait to be resolved.
	ttl   time.Duration
	width int

	offset   float64
	velocity float64
}

func newToast(id string, typ ToastType, msg string) *toast {
	t := &toast{id: id, phase: PhaseSlidingIn}
	t.set(typ, msg)
	t.offset = t.hidden()
	return t
}

func (t *toast) set(typ ToastType, msg string) {
	t.typ = typ
	t.msg = msg
	t.ttl = toastKinds[typ].dismissAfter
	// icon, space, padding and border around the message
	t.width = min(max(runewidth.StringWidth(msg)+7, MinToastWidth), MaxToastWidth)
}

// hidden is the offset at which the toast is fully off the right edge.
func (t *toast) hidden() float64 {
	return float64(t.width + 4)
}

// ToastManager stacks transient notifications in the top-right corner and
// slides them in and out on a spring.
type ToastManager struct {
	toasts  []*toast
	spinner *spinner.Model
	spring  harmonica.Spring
	seq     int
	width   int
	height  int
}

// NewToastManager creates a ToastManager that animates loading toasts with s.
func NewToastManager(s *spinner.Model) *ToastManager {
	return &ToastManager{
		spinner: s,
		spring:  harmonica.NewSpring(harmonica.FPS(int(time.Second/TickInterval)), 8.0, 1.0),
	}
}

// SetSize updates the available viewport dimensions for toast positioning.
func (tm *ToastManager) SetSize(width, height int) {
	tm.width = width
	tm.height = height
}

// Info shows an informational toast and returns its ID.
func (tm *ToastManager) Info(msg string) string { return tm.push(ToastInfo, msg) }

// Success shows a success toast and returns its ID.
func (tm *ToastManager) Success(msg string) string { return tm.push(ToastSuccess, msg) }

// Error shows an error toast and returns its ID.
func (tm *ToastManager) Error(msg string) string { return tm.push(ToastError, msg) }

// Loading shows a spinner toast that stays until resolved and returns its ID.
func (tm *ToastManager) Loading(msg string) string { return tm.push(ToastLoading, msg) }

// Resolve turns the toast with id into typ with a new message and starts its
// dismiss timer. Unknown ids are ignored.
func (tm *ToastManager) Resolve(id string, typ ToastType, msg string) {
	for _, t := range tm.toasts {
		if t.id != id {
			continue
		}
		t.set(typ, msg)
		if t.ttl == 0 {
			t.ttl = SuccessDismissAfter
		}
		if t.phase == PhaseSlidingOut {
			t.phase = PhaseVisible
		}
		t.shownAt = time.Now()
		return
	}
}

// HasActiveToasts reports whether Tick still has work to do.
func (tm *ToastManager) HasActiveToasts() bool {
	return len(tm.toasts) > 0
}

// push adds a toast, or refreshes an identical one that is still showing.
func (tm *ToastManager) push(typ ToastType, msg string) string {
	for _, t := range tm.toasts {
		if t.typ == typ && t.msg == msg && t.phase != PhaseSlidingOut {
			t.shownAt = time.Now()
			return t.id
		}
	}

	for len(tm.toasts) >= MaxToasts {
		tm.dropOldest()
	}
	tm.seq++
	t := newToast(fmt.Sprintf("toast-%d", tm.seq), typ, msg)
	tm.toasts = append(tm.toasts, t)
	return t.id
}

// dropOldest removes the oldest toast, preferring ones not waiting on a result.
func (tm *ToastManager) dropOldest() {
	for i, t := range tm.toasts {
		if t.typ != ToastLoading {
			tm.toasts = append(tm.toasts[:i], tm.toasts[i+1:]...)
			return
		}
	}
	tm.toasts = tm.toasts[1:]
}

// ToastTickMsg is sent by the main app every TickInterval while toasts are
// active to drive the animation.
type ToastTickMsg struct{}

// Tick steps every toast's spring and moves it through its phases. A slide
// ends once the spring settles; toasts that slid out are removed.
func (tm *ToastManager) Tick() {
	now := time.Now()
	alive := tm.toasts[:0]
	for _, t := range tm.toasts {
		target := 0.0
		if t.phase == PhaseSlidingOut {
			target = t.hidden()
		}
		t.offset, t.velocity = tm.spring.Update(t.offset, t.velocity, target)

		switch t.phase {
		case PhaseSlidingIn:
			if t.offset < settled {
				t.phase = PhaseVisible
				t.offset, t.velocity = 0, 0
				t.shownAt = now
			}
		case PhaseVisible:
			if t.ttl > 0 && now.Sub(t.shownAt) >= t.ttl {
				t.phase = PhaseSlidingOut
			}
		case PhaseSlidingOut:
			if t.offset >= t.hidden()-settled {
				continue
			}
		}
		alive = append(alive, t)
	}
	tm.toasts = alive
}

func (tm *ToastManager) render(t *toast) string {
	kind := toastKinds[t.typ]
	icon := kind.icon
	if t.typ == ToastLoading && tm.spinner != nil {
		icon = tm.spinner.View()
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(kind.color).
		Padding(0, 1).
		Width(t.width).
		Render(lipgloss.NewStyle().Foreground(kind.color).Render(icon) + " " + t.msg)
}

// View renders the active toasts stacked vertically.
func (tm *ToastManager) View() string {
	if len(tm.toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(tm.toasts))
	for _, t := range tm.toasts {
		rendered = append(rendered, tm.render(t))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}

// GetPosition returns where to place the toast stack: right-aligned under the
// status bar, pushed right by whichever toast is furthest off-screen.
func (tm *ToastManager) GetPosition() (int, int) {
	widest := MinToastWidth
	slide := 0
	for _, t := range tm.toasts {
		widest = max(widest, t.width)
		if t.phase != PhaseVisible {
			slide = max(slide, int(t.offset+0.5))
		}
	}
	return max(tm.width-widest-4, 0) + slide, 1
}
