package runtime

import (
	"context"
	"log"
	"path"

	"github.com/risor-io/risor/object"
)

// makeMemberFn creates the "member" host function.
//
// member(value, list) → bool
func makeMemberFn() *object.Builtin {
	return object.NewBuiltin("member", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("member", 2, len(args))
		}

		list, ok := args[1].(*object.List)
		if !ok {
			return object.Errorf("member: second argument must be a list, got %s", args[1].Type())
		}

		for _, item := range list.Value() {
			if item.Equals(args[0]).IsTruthy() {
				return object.True
			}
		}
		return object.False
	})
}

// makeGlobFn creates the "glob" host function, a shell-style pattern match
// with path.Match semantics.
//
// glob(pattern, value) → bool
func makeGlobFn() *object.Builtin {
	return object.NewBuiltin("glob", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("glob", 2, len(args))
		}

		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("glob: pattern must be a string, got %s", args[0].Type())
		}

		value, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("glob: value must be a string, got %s", args[1].Type())
		}

		matched, err := path.Match(pattern.Value(), value.Value())
		if err != nil {
			return object.Errorf("glob: invalid pattern %q: %v", pattern.Value(), err)
		}
		return object.NewBool(matched)
	})
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *log.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Printf("script INFO: %s", msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Printf("script WARN: %s", msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Printf("script ERROR: %s", msg)
}
