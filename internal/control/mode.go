package control

import (
	"time"
)

// ModeKind is the top-level state of the input state machine.
type ModeKind int

const (
	ModeNormal ModeKind = iota
	ModeMenu
	ModeBrightness
)

func (k ModeKind) String() string {
	switch k {
	case ModeNormal:
		return "normal"
	case ModeMenu:
		return "menu"
	case ModeBrightness:
		return "brightness"
	default:
		return "invalid"
	}
}

// Mode is a copy of the input state machine for display and API readers.
type Mode struct {
	Kind       ModeKind `json:"-" yaml:"-"`
	Name       string   `json:"mode" yaml:"mode"`
	Level      int      `json:"level" yaml:"level"`
	Position   int      `json:"position" yaml:"position"`
	ItemCount  int      `json:"item_count" yaml:"item_count"`
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Item       string   `json:"item,omitempty" yaml:"item,omitempty"`
	Brightness int      `json:"brightness" yaml:"brightness"`
}

const (
	levelMain           = 0
	levelEQ             = 1
	levelSpeakerParams  = 2
	levelVolumeSettings = 3

	noSubmenu = -1
)

type menuItem struct {
	label   string
	submenu int
}

type menu struct {
	title string
	// parentPosition is where the cursor returns to in the main menu.
	parentPosition int
	items          []menuItem
}

func leaf(label string) menuItem { return menuItem{label: label, submenu: noSubmenu} }

var menus = map[int]menu{
	levelMain: {
		title: "Menu",
		items: []menuItem{
			leaf(".."),
			leaf("Show devices"),
			leaf("Show settings"),
			{label: "Parametric EQ", submenu: levelEQ},
			leaf("Discover devices"),
			{label: "Speaker parameters", submenu: levelSpeakerParams},
			{label: "Volume settings", submenu: levelVolumeSettings},
		},
	},
	levelEQ: {
		title:          "EQ",
		parentPosition: 3,
		items:          []menuItem{leaf(".."), leaf("Show curve"), leaf("Add")},
	},
	levelSpeakerParams: {
		title:          "Speaker parameters",
		parentPosition: 5,
		items: []menuItem{
			leaf(".."), leaf("Logo brightness"), leaf("Delay"), leaf("Standby timeout"), leaf("Auto standby"),
		},
	},
	levelVolumeSettings: {
		title:          "Volume settings",
		parentPosition: 6,
		items: []menuItem{
			leaf(".."), leaf("Volume step"), leaf(itemBacklight), leaf("Display timeout"), leaf("Sleep"),
		},
	},
}

const itemBacklight = "Backlight"

const brightnessStep = 5

// Transition describes what a button or encoder event did.
type Transition struct {
	// Consumed is set when the event was used by the menu or brightness
	// adjustment and must not reach the volume pipeline.
	Consumed    bool
	ModeChanged bool
	EnteredMenu bool
	ExitedMenu  bool
	ToggleMute  bool
	// Selected is the label of a leaf item without a built-in action.
	Selected string
}

// ModeController decides what encoder and button events mean. It performs
// no I/O.
type ModeController struct {
	longPress time.Duration
	guard     time.Duration

	kind       ModeKind
	level      int
	position   int
	brightness int
	lastToggle time.Time

	held      bool
	pressedAt time.Time
	longFired bool
}

// NewModeController creates a controller in ModeNormal.
func NewModeController(longPress, guard time.Duration, brightness int) *ModeController {
	return &ModeController{
		longPress:  longPress,
		guard:      guard,
		brightness: clampInt(brightness, 0, 100),
	}
}

// SetTimings updates the long press threshold and menu toggle guard.
func (m *ModeController) SetTimings(longPress, guard time.Duration) {
	m.longPress = longPress
	m.guard = guard
}

// Kind returns the current mode.
func (m *ModeController) Kind() ModeKind { return m.kind }

// Brightness returns the backlight level.
func (m *ModeController) Brightness() int { return m.brightness }

// Mode returns a copy of the current state.
func (m *ModeController) Mode() Mode {
	out := Mode{Kind: m.kind, Name: m.kind.String(), Brightness: m.brightness}
	if m.kind == ModeNormal {
		return out
	}
	mn := menus[m.level]
	out.Level = m.level
	out.Position = m.position
	out.ItemCount = len(mn.items)
	out.Title = mn.title
	out.Item = mn.items[m.position].label
	return out
}

// Press records a button press.
func (m *ModeController) Press(now time.Time) {
	m.held = true
	m.pressedAt = now
	m.longFired = false
}

// CheckLongPress enters the menu while the button is still held once the
// long press threshold has passed.
func (m *ModeController) CheckLongPress(now time.Time) Transition {
	if !m.held || m.longFired || m.kind != ModeNormal || now.Sub(m.pressedAt) < m.longPress {
		return Transition{}
	}
	m.longFired = true
	return m.enterMenu(now)
}

// Release handles a button release.
func (m *ModeController) Release(now time.Time) Transition {
	if !m.held {
		return Transition{}
	}
	m.held = false
	if m.longFired {
		m.longFired = false
		return Transition{Consumed: true}
	}

	switch m.kind {
	case ModeNormal:
		if now.Sub(m.pressedAt) >= m.longPress {
			return m.enterMenu(now)
		}
		return Transition{ToggleMute: true}

	case ModeBrightness:
		m.kind = ModeMenu
		return Transition{Consumed: true, ModeChanged: true}

	default:
		return m.selectItem(now)
	}
}

// Encoder routes delta to menu navigation or brightness adjustment. In
// ModeNormal it is left for the volume pipeline.
func (m *ModeController) Encoder(delta int) Transition {
	switch m.kind {
	case ModeMenu:
		n := len(menus[m.level].items)
		m.position = ((m.position+delta)%n + n) % n
		return Transition{Consumed: true, ModeChanged: true}
	case ModeBrightness:
		next := clampInt(m.brightness+delta*brightnessStep, 0, 100)
		changed := next != m.brightness
		m.brightness = next
		return Transition{Consumed: true, ModeChanged: changed}
	default:
		return Transition{}
	}
}

func (m *ModeController) enterMenu(now time.Time) Transition {
	if !m.lastToggle.IsZero() && now.Sub(m.lastToggle) < m.guard {
		return Transition{Consumed: true}
	}
	m.lastToggle = now
	m.kind = ModeMenu
	m.level = levelMain
	m.position = 0
	return Transition{Consumed: true, ModeChanged: true, EnteredMenu: true}
}

func (m *ModeController) exitMenu(now time.Time) Transition {
	m.lastToggle = now
	m.kind = ModeNormal
	m.level = levelMain
	m.position = 0
	return Transition{Consumed: true, ModeChanged: true, ExitedMenu: true}
}

func (m *ModeController) selectItem(now time.Time) Transition {
	mn := menus[m.level]
	item := mn.items[m.position]

	if m.position == 0 {
		if m.level == levelMain {
			return m.exitMenu(now)
		}
		m.level = levelMain
		m.position = mn.parentPosition
		return Transition{Consumed: true, ModeChanged: true}
	}

	if item.submenu != noSubmenu {
		m.level = item.submenu
		m.position = 0
		return Transition{Consumed: true, ModeChanged: true}
	}

	if m.level == levelVolumeSettings && item.label == itemBacklight {
		m.kind = ModeBrightness
		return Transition{Consumed: true, ModeChanged: true}
	}

	return Transition{Consumed: true, Selected: item.label}
}

func clampInt(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
