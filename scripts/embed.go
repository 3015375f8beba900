// Package scripts holds the built-in predicate scripts, selectable on the
// command line as builtin:<name>.
package scripts

import "embed"

// FS contains every built-in .risor predicate script.
//
//go:embed *.risor
var FS embed.FS
