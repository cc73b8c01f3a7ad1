package script

import "testing"

func TestNopModuleSatisfiesModule(t *testing.T) {
	var m Module = NopModule{}
	if err := m.Init(nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Update(16); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := m.Dispatch("ping", nil); err != ErrModuleNotLoaded {
		t.Fatalf("Dispatch err = %v, want ErrModuleNotLoaded", err)
	}
	if err := m.Uninit(); err != nil {
		t.Fatalf("Uninit: %v", err)
	}
}
