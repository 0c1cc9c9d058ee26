package hid

import (
	"time"

	"github.com/dshills/taphold/internal/input/key"
)

// Mouse key movement limits.
const (
	MoveDelta  = 8
	MoveMax    = 127
	WheelDelta = 1
	WheelMax   = 127
)

// MouseConfig holds mouse key acceleration settings. Speeds are
// multiples of the delta; TimeToMax counts repeats.
type MouseConfig struct {
	Interval  time.Duration
	Delay     time.Duration
	MaxSpeed  int
	TimeToMax int

	WheelInterval  time.Duration
	WheelDelay     time.Duration
	WheelMaxSpeed  int
	WheelTimeToMax int
}

// DefaultMouseConfig returns the Kyria mouse key tuning.
func DefaultMouseConfig() MouseConfig {
	return MouseConfig{
		Interval:       16 * time.Millisecond,
		Delay:          100 * time.Millisecond,
		MaxSpeed:       7,
		TimeToMax:      40,
		WheelInterval:  50 * time.Millisecond,
		WheelDelay:     100 * time.Millisecond,
		WheelMaxSpeed:  7,
		WheelTimeToMax: 40,
	}
}

// MouseKeys tracks held mouse keys and produces accelerated movement.
type MouseKeys struct {
	config MouseConfig

	buttons uint8
	up      bool
	down    bool
	left    bool
	right   bool
	wUp     bool
	wDown   bool
	wLeft   bool
	wRight  bool

	repeat      int
	wheelRepeat int
	lastMove    time.Duration
	lastWheel   time.Duration
}

// NewMouseKeys creates mouse key state with the given tuning.
func NewMouseKeys(config MouseConfig) *MouseKeys {
	return &MouseKeys{config: config}
}

// Buttons returns the held button bits.
func (m *MouseKeys) Buttons() uint8 {
	return m.buttons
}

// Active reports whether any movement or wheel key is held.
func (m *MouseKeys) Active() bool {
	return m.moving() || m.scrolling()
}

func (m *MouseKeys) moving() bool {
	return m.up || m.down || m.left || m.right
}

func (m *MouseKeys) scrolling() bool {
	return m.wUp || m.wDown || m.wLeft || m.wRight
}

// Press starts a mouse key and returns the immediate report.
func (m *MouseKeys) Press(k key.Keycode, now time.Duration) MouseReport {
	switch k {
	case key.KeyMouseUp:
		m.up = true
	case key.KeyMouseDown:
		m.down = true
	case key.KeyMouseLeft:
		m.left = true
	case key.KeyMouseRight:
		m.right = true
	case key.KeyWheelUp:
		m.wUp = true
	case key.KeyWheelDown:
		m.wDown = true
	case key.KeyWheelLeft:
		m.wLeft = true
	case key.KeyWheelRight:
		m.wRight = true
	default:
		if bit, ok := buttonBit(k); ok {
			m.buttons |= bit
		}
		return MouseReport{Buttons: m.buttons}
	}

	r := MouseReport{Buttons: m.buttons}
	if isWheel(k) {
		m.lastWheel = now
		r.Wheel, r.Pan = m.wheelVector(m.wheelUnit())
	} else {
		m.lastMove = now
		r.X, r.Y = m.moveVector(m.moveUnit())
	}
	return r
}

// Release ends a mouse key and returns the report to send.
func (m *MouseKeys) Release(k key.Keycode) MouseReport {
	switch k {
	case key.KeyMouseUp:
		m.up = false
	case key.KeyMouseDown:
		m.down = false
	case key.KeyMouseLeft:
		m.left = false
	case key.KeyMouseRight:
		m.right = false
	case key.KeyWheelUp:
		m.wUp = false
	case key.KeyWheelDown:
		m.wDown = false
	case key.KeyWheelLeft:
		m.wLeft = false
	case key.KeyWheelRight:
		m.wRight = false
	default:
		if bit, ok := buttonBit(k); ok {
			m.buttons &^= bit
		}
	}
	if !m.moving() {
		m.repeat = 0
	}
	if !m.scrolling() {
		m.wheelRepeat = 0
	}
	return MouseReport{Buttons: m.buttons}
}

// Tick returns the next movement report when one is due.
func (m *MouseKeys) Tick(now time.Duration) (MouseReport, bool) {
	var r MouseReport
	due := false

	if m.moving() {
		wait := m.config.Delay
		if m.repeat > 0 {
			wait = m.config.Interval
		}
		if now-m.lastMove >= wait {
			m.lastMove = now
			if m.repeat < 255 {
				m.repeat++
			}
			r.X, r.Y = m.moveVector(m.moveUnit())
			due = true
		}
	}

	if m.scrolling() {
		wait := m.config.WheelDelay
		if m.wheelRepeat > 0 {
			wait = m.config.WheelInterval
		}
		if now-m.lastWheel >= wait {
			m.lastWheel = now
			if m.wheelRepeat < 255 {
				m.wheelRepeat++
			}
			r.Wheel, r.Pan = m.wheelVector(m.wheelUnit())
			due = true
		}
	}

	r.Buttons = m.buttons
	return r, due
}

func (m *MouseKeys) moveUnit() int {
	return accelUnit(MoveDelta, MoveMax, m.config.MaxSpeed, m.config.TimeToMax, m.repeat)
}

func (m *MouseKeys) wheelUnit() int {
	return accelUnit(WheelDelta, WheelMax, m.config.WheelMaxSpeed, m.config.WheelTimeToMax, m.wheelRepeat)
}

// accelUnit ramps linearly from delta to delta*maxSpeed over timeToMax
// repeats, clamped to [1, limit].
func accelUnit(delta, limit, maxSpeed, timeToMax, repeat int) int {
	var unit int
	switch {
	case repeat == 0:
		unit = delta
	case repeat >= timeToMax:
		unit = delta * maxSpeed
	default:
		unit = delta * maxSpeed * repeat / timeToMax
	}
	return min(max(unit, 1), limit)
}

func (m *MouseKeys) moveVector(unit int) (x, y int8) {
	var dx, dy int
	if m.up {
		dy -= unit
	}
	if m.down {
		dy += unit
	}
	if m.left {
		dx -= unit
	}
	if m.right {
		dx += unit
	}
	// Diagonal movement keeps the same speed.
	if dx != 0 && dy != 0 {
		dx, dy = diagonal(dx), diagonal(dy)
	}
	return int8(dx), int8(dy)
}

func (m *MouseKeys) wheelVector(unit int) (wheel, pan int8) {
	var v, h int
	if m.wUp {
		v += unit
	}
	if m.wDown {
		v -= unit
	}
	if m.wRight {
		h += unit
	}
	if m.wLeft {
		h -= unit
	}
	return int8(v), int8(h)
}

// diagonal scales v by 1/sqrt(2), never to zero.
func diagonal(v int) int {
	s := v * 181 / 256
	switch {
	case s != 0:
		return s
	case v < 0:
		return -1
	default:
		return 1
	}
}

func isWheel(k key.Keycode) bool {
	return k >= key.KeyWheelUp && k <= key.KeyWheelRight
}

func buttonBit(k key.Keycode) (uint8, bool) {
	if k < key.KeyMouseBtn1 || k > key.KeyMouseBtn5 {
		return 0, false
	}
	return 1 << (k - key.KeyMouseBtn1), true
}
