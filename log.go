package memento

import "log"

// logf writes a component-tagged line, the same [prefix] convention the
// teacher uses throughout (log.Printf("[engram] ...")).
func logf(component, format string, args ...any) {
	log.Printf("[memento] ["+component+"] "+format, args...)
}
