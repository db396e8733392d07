// Package agg pools per-user values into group statistics. Output is keyed by group name only.
package agg
