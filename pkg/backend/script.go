package backend

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"sync"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

//go:embed scripts/demo.js
var demoScript string

// Script answers commands with a JavaScript function
// `handle(command, args)`. Returning undefined means the command is unknown;
// throwing fails the command. A Script serializes calls, goja runtimes are
// not safe for concurrent use.
type Script struct {
	name string

	mu     sync.Mutex
	vm     *goja.Runtime
	handle goja.Callable
}

func NewScript(name, src string) (*Script, error) {
	vm := goja.New()
	if _, err := vm.RunScript(name, src); err != nil {
		return nil, errors.Wrapf(err, "run script %s", name)
	}
	handle, ok := goja.AssertFunction(vm.Get("handle"))
	if !ok {
		return nil, errors.Errorf("script %s does not define handle(command, args)", name)
	}
	return &Script{name: name, vm: vm, handle: handle}, nil
}

func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	return NewScript(path, string(b))
}

// DemoScript returns the bundled script that fakes a small cluster.
func DemoScript() (*Script, error) {
	return NewScript("demo.js", demoScript)
}

func (s *Script) Name() string { return s.name }

func (s *Script) Run(ctx context.Context, command string, args json.RawMessage) (any, error) {
	var in any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, errors.Wrap(err, "decode args")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt("context done")
	})
	defer func() {
		stop()
		s.vm.ClearInterrupt()
	}()

	v, err := s.handle(goja.Undefined(), s.vm.ToValue(command), s.vm.ToValue(in))
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return nil, errors.New(ex.Value().String())
		}
		return nil, errors.Wrapf(err, "script %s", s.name)
	}
	if v == nil || goja.IsUndefined(v) {
		return nil, errors.Wrap(ErrUnknownCommand, command)
	}
	return v.Export(), nil
}
