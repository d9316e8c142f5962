package profile

import "testing"

func TestResolveKeyboardRefEmpty(t *testing.T) {
	cat := newCatalog[*KeyboardProfile](nil)
	resolved, ok := resolveKeyboardRef(cat, "")
	if !ok || resolved != "" {
		t.Fatalf("resolveKeyboardRef(empty) = (%q, %v), want (\"\", true)", resolved, ok)
	}
}

func TestResolveKeyboardRefByID(t *testing.T) {
	cat := newCatalog([]*KeyboardProfile{{ID: "kb-1", Name: "RGB Wave", Builtin: true}})
	resolved, ok := resolveKeyboardRef(cat, "kb-1")
	if !ok || resolved != "kb-1" {
		t.Fatalf("resolveKeyboardRef(by id) = (%q, %v)", resolved, ok)
	}
}

func TestResolveKeyboardRefByName(t *testing.T) {
	cat := newCatalog([]*KeyboardProfile{{ID: "kb-1", Name: "RGB Wave", Builtin: true}})
	resolved, ok := resolveKeyboardRef(cat, "RGB Wave")
	if !ok || resolved != "kb-1" {
		t.Fatalf("resolveKeyboardRef(by name) = (%q, %v), want canonical id kb-1", resolved, ok)
	}
}

func TestResolveKeyboardRefUnresolved(t *testing.T) {
	cat := newCatalog([]*KeyboardProfile{{ID: "kb-1", Name: "RGB Wave", Builtin: true}})
	_, ok := resolveKeyboardRef(cat, "nonexistent")
	if ok {
		t.Fatal("expected resolveKeyboardRef to fail for an unknown name/id")
	}
}
