package factory

import (
	"errors"
	"reflect"
	"testing"
)

type sample struct {
	Nodes int
	Tol   float64
}

type sampleConf struct {
	Nodes int     `json:"max_nodes"`
	Tol   float64 `json:"tolerance"`
}

func newSample(conf map[string]any) (*sample, error) {
	var c sampleConf
	if err := Decode(conf, &c); err != nil {
		return nil, err
	}
	return &sample{Nodes: c.Nodes, Tol: c.Tol}, nil
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", newSample); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"max_nodes": 3, "tolerance": 1e-6}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Nodes != 3 || inst.Tol != 1e-6 {
		t.Fatalf("unexpected instance %+v", inst)
	}
}

func TestDecodeWeaklyTyped(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"max_nodes": "250", "tolerance": "0.001"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Nodes != 250 || c.Tol != 0.001 {
		t.Fatalf("unexpected conf %+v", c)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("z", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType got %v", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"simplex", "assignment", "nop"} {
		if err := reg.Register(n, func(map[string]any) (int, error) { return 0, nil }); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"assignment", "nop", "simplex"}) {
		t.Fatalf("unexpected names %v", got)
	}
}
