package profile

import "testing"

type dummyItem struct {
	ID      string
	Builtin bool
}

func (d *dummyItem) GetID() string    { return d.ID }
func (d *dummyItem) SetID(id string)  { d.ID = id }
func (d *dummyItem) GetBuiltin() bool { return d.Builtin }

func TestCatalogListBuiltinsFirst(t *testing.T) {
	c := newCatalog([]*dummyItem{{ID: "b1", Builtin: true}, {ID: "b2", Builtin: true}})
	c.customs = append(c.customs, &dummyItem{ID: "c1"})

	list := c.List()
	if len(list) != 3 || list[0].ID != "b1" || list[1].ID != "b2" || list[2].ID != "c1" {
		t.Fatalf("List() = %v, want builtins then customs in order", list)
	}
}

func TestCatalogCreateCustomAssignsIDOnEmpty(t *testing.T) {
	c := newCatalog[*dummyItem](nil)
	genID := func() string { return "generated" }

	stored, err := c.CreateCustom(&dummyItem{}, genID)
	if err != nil {
		t.Fatalf("CreateCustom() error: %v", err)
	}
	if stored.ID != "generated" {
		t.Fatalf("stored.ID = %q, want %q", stored.ID, "generated")
	}
}

func TestCatalogCreateCustomRejectsBuiltinFlag(t *testing.T) {
	c := newCatalog[*dummyItem](nil)
	if _, err := c.CreateCustom(&dummyItem{Builtin: true}, func() string { return "x" }); err == nil {
		t.Fatal("expected error creating an item flagged builtin")
	}
}

func TestCatalogUpdateCustomRejectsBuiltinAndUnknown(t *testing.T) {
	c := newCatalog([]*dummyItem{{ID: "b1", Builtin: true}})
	c.customs = append(c.customs, &dummyItem{ID: "c1"})

	if err := c.UpdateCustom("b1", &dummyItem{}); err == nil {
		t.Fatal("expected error updating a built-in entry")
	}
	if err := c.UpdateCustom("missing", &dummyItem{}); err == nil {
		t.Fatal("expected error updating an unknown id")
	}
	if err := c.UpdateCustom("c1", &dummyItem{ID: "ignored-id"}); err != nil {
		t.Fatalf("UpdateCustom() error: %v", err)
	}
	got, _ := c.Get("c1")
	if got.ID != "c1" {
		t.Fatalf("UpdateCustom() let the id drift to %q", got.ID)
	}
}

func TestCatalogDeleteCustomRejectsBuiltinAndReferenced(t *testing.T) {
	c := newCatalog([]*dummyItem{{ID: "b1", Builtin: true}})
	c.customs = append(c.customs, &dummyItem{ID: "c1"}, &dummyItem{ID: "c2"})

	if err := c.DeleteCustom("b1", nil); err == nil {
		t.Fatal("expected error deleting a built-in entry")
	}
	referenced := func(id string) bool { return id == "c1" }
	if err := c.DeleteCustom("c1", referenced); err == nil {
		t.Fatal("expected error deleting a referenced entry")
	}
	if err := c.DeleteCustom("c2", referenced); err != nil {
		t.Fatalf("DeleteCustom() error: %v", err)
	}
	if _, ok := c.Get("c2"); ok {
		t.Fatal("c2 should have been removed")
	}
}
