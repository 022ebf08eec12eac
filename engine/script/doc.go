// Package script runs code-mode custom integrations. Operator scripts define
// sync(context) and run in a fresh goja runtime with a wall-clock timeout,
// a call stack ceiling and a per-run fetch budget.
package script
