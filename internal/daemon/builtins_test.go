package daemon

import "testing"

func TestBuiltinProfilesValidate(t *testing.T) {
	ids := map[string]bool{}
	for _, p := range builtinProfiles() {
		if err := p.Validate(); err != nil {
			t.Errorf("profile %q: %v", p.ID, err)
		}
		if ids[p.ID] {
			t.Errorf("duplicate profile id %q", p.ID)
		}
		ids[p.ID] = true
	}
	if !ids["balanced"] {
		t.Error("builtinProfiles must include \"balanced\" as the state-map fallback target")
	}
}

func TestBuiltinProfilesReferenceExistingFanAndKeyboardProfiles(t *testing.T) {
	fanIDs := map[string]bool{}
	for _, fp := range builtinFanProfiles() {
		if err := fp.Validate(); err != nil {
			t.Errorf("fan profile %q: %v", fp.ID, err)
		}
		fanIDs[fp.ID] = true
	}
	kbIDs := map[string]bool{}
	for _, kp := range builtinKeyboardProfiles() {
		if err := kp.Validate(); err != nil {
			t.Errorf("keyboard profile %q: %v", kp.ID, err)
		}
		kbIDs[kp.ID] = true
	}

	for _, p := range builtinProfiles() {
		if !fanIDs[p.Fan.FanProfileID] {
			t.Errorf("profile %q references unknown fan profile %q", p.ID, p.Fan.FanProfileID)
		}
		if !p.Keyboard.Empty() && !kbIDs[string(p.Keyboard)] {
			t.Errorf("profile %q references unknown keyboard profile %q", p.ID, p.Keyboard)
		}
	}
}
