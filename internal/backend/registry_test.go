package backend

import (
	"errors"
	"testing"
)

type stubBackend struct {
	name string
}

func (s *stubBackend) Run(inv Invocation) (Outcome, error) {
	return Outcome{}, nil
}

func (s *stubBackend) Capabilities() Capabilities {
	return Capabilities{Name: s.name, Commands: []string{"pdflatex"}, Formats: []string{"pdf"}}
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", &stubBackend{name: "zeta"})
	r.Register("alpha", &stubBackend{name: "alpha"})

	infos := r.List()
	if len(infos) != 2 {
		t.Fatalf("List() len = %d, want 2", len(infos))
	}
	if infos[0].Name != "alpha" || infos[1].Name != "zeta" {
		t.Errorf("List() order = [%s %s], want [alpha zeta]", infos[0].Name, infos[1].Name)
	}
	if infos[0].Capabilities.Name != "alpha" {
		t.Errorf("Capabilities.Name = %q, want %q", infos[0].Capabilities.Name, "alpha")
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	want := &stubBackend{name: "process"}
	r.Register("process", want)

	got, err := r.Resolve("process")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != want {
		t.Errorf("Resolve() returned a different backend")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("missing")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("Resolve(missing) error = %v, want ErrUnknownBackend", err)
	}
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("process", &stubBackend{name: "old"})
	r.Register("process", &stubBackend{name: "new"})

	infos := r.List()
	if len(infos) != 1 || infos[0].Capabilities.Name != "new" {
		t.Errorf("List() = %+v, want the replacement only", infos)
	}
}

func TestRegistryListEmpty(t *testing.T) {
	infos := NewRegistry().List()
	if infos == nil || len(infos) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", infos)
	}
}
