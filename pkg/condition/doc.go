// Package condition evaluates the small boolean rules used to guard buttons in
// toolbar definitions (for example `features.export && "admin" in
// actor.roles`). The grammar is intentionally tiny and dependency free; custom
// evaluators can be plugged in through the Evaluator interface.
package condition
