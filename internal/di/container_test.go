package di

import "testing"

type greeter struct{ name string }

func TestRegisterToken_BuildsOnce(t *testing.T) {
	c := NewContainer()
	c.Register("name", "curve")

	token := NewToken[*greeter]("test:greeter")
	builds := 0
	RegisterToken(c, token, func(sr ServiceRegistry) *greeter {
		builds++
		return &greeter{name: sr.Get("name").(string)}
	})

	first := GetToken(c, token)
	second := GetToken(c, token)

	if builds != 1 {
		t.Errorf("factory ran %d times, want 1", builds)
	}
	if first != second {
		t.Error("expected the same instance")
	}
	if first.name != "curve" {
		t.Errorf("name = %q, want curve", first.name)
	}
}

func TestGet_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown service")
		}
	}()
	NewContainer().Get("missing")
}

func TestGet_CyclePanics(t *testing.T) {
	c := NewContainer()
	a := NewToken[int]("a")
	b := NewToken[int]("b")
	RegisterToken(c, a, func(sr ServiceRegistry) int { return GetToken(sr, b) })
	RegisterToken(c, b, func(sr ServiceRegistry) int { return GetToken(sr, a) })

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for cycle")
		}
	}()
	GetToken(c, a)
}

func TestHas(t *testing.T) {
	c := NewContainer()
	if c.Has("x") {
		t.Fatal("empty container reports x")
	}
	c.Register("x", 1)
	if !c.Has("x") {
		t.Fatal("expected x after Register")
	}
}
