package profile

// KeyboardProfileRef is a profile's reference to a keyboard profile.
// Resolved per the canonicalization decided for the open question in
// §9: the underlying source sometimes stores a name, sometimes an id;
// this type accepts either on read and is always rewritten to the
// resolved id before being persisted.
type KeyboardProfileRef string

// Empty reports whether the reference means "unchanged" (the profile
// does not touch keyboard backlight state at all).
func (r KeyboardProfileRef) Empty() bool { return r == "" }

// resolveKeyboardRef looks up ref by id first, then by name, and
// returns the canonical id. This is the single place name-or-id
// ambiguity is resolved; every write path (CreateCustom/UpdateCustom)
// funnels a profile's Keyboard field through it before persisting.
func resolveKeyboardRef(cat *catalog[*KeyboardProfile], ref KeyboardProfileRef) (KeyboardProfileRef, bool) {
	if ref.Empty() {
		return "", true
	}
	if kp, ok := cat.Get(string(ref)); ok {
		return KeyboardProfileRef(kp.ID), true
	}
	for _, kp := range cat.List() {
		if kp.Name == string(ref) {
			return KeyboardProfileRef(kp.ID), true
		}
	}
	return ref, false
}
