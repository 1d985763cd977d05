package onboarding

import "strings"

// CodeLength is the number of digit slots in a one-time code.
const CodeLength = 6

// CodeInput models the six single-digit slots of the code entry field.
// The zero value is empty with focus on the first slot.
type CodeInput struct {
	slots [CodeLength]rune
	focus int
}

// Enter writes d into the focused slot and moves focus to the next empty
// slot. Non-digits are rejected without changing anything.
func (c *CodeInput) Enter(d rune) bool {
	if d < '0' || d > '9' {
		return false
	}
	c.slots[c.focus] = d
	c.focus = c.nextEmpty(c.focus)
	return true
}

// Backspace clears the focused slot, or moves focus back when it is empty.
func (c *CodeInput) Backspace() {
	if c.slots[c.focus] != 0 {
		c.slots[c.focus] = 0
		return
	}
	if c.focus > 0 {
		c.focus--
	}
}

// Paste fills slots from the focused one using the digits found in s and
// returns how many were written.
func (c *CodeInput) Paste(s string) int {
	n := 0
	i := c.focus
	for _, r := range s {
		if i >= CodeLength {
			break
		}
		if r < '0' || r > '9' {
			continue
		}
		c.slots[i] = r
		i++
		n++
	}
	if n > 0 {
		c.focus = c.nextEmpty(i - 1)
	}
	return n
}

// SetFocus moves focus to slot i when it is in range.
func (c *CodeInput) SetFocus(i int) {
	if i >= 0 && i < CodeLength {
		c.focus = i
	}
}

// Focus returns the focused slot index.
func (c *CodeInput) Focus() int { return c.focus }

// Complete reports whether every slot holds a digit.
func (c *CodeInput) Complete() bool {
	for _, d := range c.slots {
		if d == 0 {
			return false
		}
	}
	return true
}

// Code returns the digits entered so far in slot order.
func (c *CodeInput) Code() string {
	var b strings.Builder
	for _, d := range c.slots {
		if d != 0 {
			b.WriteRune(d)
		}
	}
	return b.String()
}

// Slots returns each slot as a one-character string, empty when unset.
func (c *CodeInput) Slots() [CodeLength]string {
	var out [CodeLength]string
	for i, d := range c.slots {
		if d != 0 {
			out[i] = string(d)
		}
	}
	return out
}

// Clear empties every slot and refocuses the first.
func (c *CodeInput) Clear() {
	*c = CodeInput{}
}

// nextEmpty finds the first empty slot after from, wrapping to the start.
// When all slots are filled focus stays on from.
func (c *CodeInput) nextEmpty(from int) int {
	for i := 1; i <= CodeLength; i++ {
		j := (from + i) % CodeLength
		if c.slots[j] == 0 {
			return j
		}
	}
	return from
}
