package profile

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/uccd-project/uccd/internal/hal/charging"
	"github.com/uccd-project/uccd/internal/hal/cpufreq"
	"github.com/uccd-project/uccd/internal/hal/display"
	"github.com/uccd-project/uccd/internal/hal/fnlock"
	"github.com/uccd-project/uccd/internal/hal/keyboard"
	"github.com/uccd-project/uccd/internal/hal/odm"
	"github.com/uccd-project/uccd/internal/hal/webcam"
	"github.com/uccd-project/uccd/internal/persist"
	"github.com/uccd-project/uccd/internal/ucerr"
	"github.com/uccd-project/uccd/internal/worker/fanctl"
	"github.com/uccd-project/uccd/internal/worker/powerstate"
)

const envelopeVersion = 1

// HAL collects the capability controllers apply() drives. Every field
// may be nil when the device capability record says the feature is
// absent; apply() checks each before use.
type HAL struct {
	CPU      *cpufreq.Controller
	Charging *charging.Controller
	ODM      *odm.Controller
	Keyboard *keyboard.Controller
	Display  *display.Controller
	Webcam   *webcam.Controller
	FnLock   *fnlock.Controller
	Fan      *fanctl.Worker
}

// Notifier is told about catalog/active-profile changes; wired to the
// RPC surface's signal emission (ActiveProfileChanged,
// ProfileCatalogChanged).
type Notifier interface {
	ActiveProfileChanged(id string)
	ProfileCatalogChanged()
}

// Engine is the profile engine (C7): built-in + custom catalogs for
// profiles, fan profiles, and keyboard profiles; the active profile;
// the power-state map; and apply() which drives the HAL. Every
// mutating operation holds the single exclusive lock for its whole
// duration, matching §4.7's "each acquires an exclusive engine lock".
type Engine struct {
	mu sync.RWMutex

	hal      HAL
	store    *persist.Store
	notifier Notifier
	newID    func() string
	log      *logrus.Entry

	profiles    *catalog[*Profile]
	fanProfiles *catalog[*FanProfile]
	kbProfiles  *catalog[*KeyboardProfile]

	activeProfileID string
	stateMap        StateMap
}

// New builds the engine from its built-in catalogs, loading any
// persisted customs and state map from store. The active profile is
// not itself persisted (§4.12's category list); it starts as the
// first built-in and is expected to be set explicitly by the daemon
// controller once the initial power state is known.
func New(hal HAL, store *persist.Store, notifier Notifier, builtinProfiles []*Profile, builtinFanProfiles []*FanProfile, builtinKeyboardProfiles []*KeyboardProfile, log *logrus.Entry) (*Engine, error) {
	e := &Engine{
		hal:         hal,
		store:       store,
		notifier:    notifier,
		newID:       uuid.NewString,
		log:         log.WithField("component", "profile.engine"),
		profiles:    newCatalog(builtinProfiles),
		fanProfiles: newCatalog(builtinFanProfiles),
		kbProfiles:  newCatalog(builtinKeyboardProfiles),
		stateMap:    StateMap{},
	}
	if len(builtinProfiles) > 0 {
		e.activeProfileID = builtinProfiles[0].ID
	}

	if err := e.loadPersisted(); err != nil {
		return nil, errors.Wrap(err, "profile: loading persisted state")
	}
	return e, nil
}

func (e *Engine) loadPersisted() error {
	var customProfiles []*Profile
	if _, err := e.store.Load("profiles", envelopeVersion, &customProfiles); err != nil {
		return err
	}
	e.profiles.SetCustoms(customProfiles)

	var customFanProfiles []*FanProfile
	if _, err := e.store.Load("fan_profiles", envelopeVersion, &customFanProfiles); err != nil {
		return err
	}
	e.fanProfiles.SetCustoms(customFanProfiles)

	var customKBProfiles []*KeyboardProfile
	if _, err := e.store.Load("keyboard_profiles", envelopeVersion, &customKBProfiles); err != nil {
		return err
	}
	e.kbProfiles.SetCustoms(customKBProfiles)

	var stateMap StateMap
	if _, err := e.store.Load("state_map", envelopeVersion, &stateMap); err != nil {
		return err
	}
	if stateMap != nil {
		e.stateMap = stateMap
	}
	return nil
}

// ListProfiles returns built-ins then customs, deep-copied.
func (e *Engine) ListProfiles() []Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyProfiles(e.profiles.List())
}

// GetActiveProfile returns a deep copy of the currently active
// profile.
func (e *Engine) GetActiveProfile() (Profile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.profiles.Get(e.activeProfileID)
	if !ok {
		return Profile{}, ucerr.New(ucerr.NotFound, "profile.GetActiveProfile", errors.Errorf("active profile %s not found", e.activeProfileID))
	}
	return copyProfiles([]*Profile{p})[0], nil
}

// SetActiveProfile resolves id, applies it to the HAL, and on any
// apply error rolls back to the previously active profile
// (best-effort) while surfacing the original error. On success it
// emits ActiveProfileChanged.
func (e *Engine) SetActiveProfile(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles.Get(id)
	if !ok {
		return ucerr.New(ucerr.NotFound, "profile.SetActiveProfile", errors.Errorf("no such profile %s", id))
	}

	previousID := e.activeProfileID
	if err := e.apply(p); err != nil {
		if previousID != "" && previousID != id {
			if prev, ok := e.profiles.Get(previousID); ok {
				if rollbackErr := e.apply(prev); rollbackErr != nil {
					e.log.WithError(rollbackErr).Warn("rollback to previous profile also failed")
				}
			}
		}
		return err
	}

	e.activeProfileID = id
	if e.notifier != nil {
		e.notifier.ActiveProfileChanged(id)
	}
	return nil
}

// ResolvePowerState implements worker/powerstate.Resolver: looks up
// the state map for state, falling back to the first built-in profile
// if the mapped id is missing or unset (§3's "unknown id falls back
// to the first built-in profile"), then applies it.
func (e *Engine) ResolvePowerState(state powerstate.State) {
	e.mu.RLock()
	id, ok := e.stateMap[state]
	if !ok || !e.profiles.exists(id) {
		if len(e.profiles.builtins) > 0 {
			id = e.profiles.builtins[0].GetID()
		}
	}
	e.mu.RUnlock()

	if id == "" {
		return
	}
	if err := e.SetActiveProfile(id); err != nil {
		e.log.WithError(err).WithField("power_state", state).Warn("failed to apply state-mapped profile")
	}
}

// SetStateProfile binds a power state to a profile id.
func (e *Engine) SetStateProfile(state powerstate.State, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.profiles.exists(id) {
		return ucerr.New(ucerr.NotFound, "profile.SetStateProfile", errors.Errorf("no such profile %s", id))
	}
	e.stateMap[state] = id
	return e.store.Save("state_map", envelopeVersion, e.stateMap, nil)
}

// CreateCustomProfile validates p, assigns a fresh id if needed,
// resolves its keyboard reference to a canonical id, appends it, and
// persists the custom catalog.
func (e *Engine) CreateCustomProfile(p Profile) (Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p.Builtin = false
	if err := e.validateProfileReferences(&p); err != nil {
		return Profile{}, err
	}
	stored, err := e.profiles.CreateCustom(&p, e.newID)
	if err != nil {
		return Profile{}, err
	}
	if err := e.persistProfiles(); err != nil {
		return Profile{}, err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return *stored, nil
}

// UpdateCustomProfile replaces the custom profile with id.
func (e *Engine) UpdateCustomProfile(id string, p Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p.Builtin = false
	if err := e.validateProfileReferences(&p); err != nil {
		return err
	}
	if err := e.profiles.UpdateCustom(id, &p); err != nil {
		return err
	}
	if err := e.persistProfiles(); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return nil
}

// DeleteCustomProfile removes the custom profile with id, refusing if
// it is active or referenced by the state map.
func (e *Engine) DeleteCustomProfile(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	referenced := func(candidate string) bool {
		if candidate == e.activeProfileID {
			return true
		}
		for _, mapped := range e.stateMap {
			if mapped == candidate {
				return true
			}
		}
		return false
	}
	if err := e.profiles.DeleteCustom(id, referenced); err != nil {
		return err
	}
	if err := e.persistProfiles(); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return nil
}

func (e *Engine) validateProfileReferences(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Fan.FanProfileID != "" && !e.fanProfiles.exists(p.Fan.FanProfileID) {
		return ucerr.New(ucerr.InvalidArgument, "profile.validateProfileReferences", errors.Errorf("fan-profile-id %s does not exist", p.Fan.FanProfileID))
	}
	if !p.Keyboard.Empty() {
		resolved, ok := resolveKeyboardRef(e.kbProfiles, p.Keyboard)
		if !ok {
			return ucerr.New(ucerr.InvalidArgument, "profile.validateProfileReferences", errors.Errorf("keyboard profile reference %q does not resolve", p.Keyboard))
		}
		p.Keyboard = resolved
	}
	return nil
}

func (e *Engine) persistProfiles() error {
	return e.store.Save("profiles", envelopeVersion, e.profiles.Customs(), nil)
}

// --- Fan profiles: same shape as profiles, instantiated over FanProfile.

func (e *Engine) ListFanProfiles() []FanProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyFanProfiles(e.fanProfiles.List())
}

func (e *Engine) GetFanProfile(id string) (FanProfile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fp, ok := e.fanProfiles.Get(id)
	if !ok {
		return FanProfile{}, ucerr.New(ucerr.NotFound, "profile.GetFanProfile", errors.Errorf("no such fan profile %s", id))
	}
	return *fp, nil
}

func (e *Engine) CreateCustomFanProfile(fp FanProfile) (FanProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fp.Builtin = false
	if err := fp.Validate(); err != nil {
		return FanProfile{}, err
	}
	stored, err := e.fanProfiles.CreateCustom(&fp, e.newID)
	if err != nil {
		return FanProfile{}, err
	}
	if err := e.store.Save("fan_profiles", envelopeVersion, e.fanProfiles.Customs(), nil); err != nil {
		return FanProfile{}, err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return *stored, nil
}

func (e *Engine) UpdateCustomFanProfile(id string, fp FanProfile) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fp.Builtin = false
	if err := fp.Validate(); err != nil {
		return err
	}
	if err := e.fanProfiles.UpdateCustom(id, &fp); err != nil {
		return err
	}
	if err := e.store.Save("fan_profiles", envelopeVersion, e.fanProfiles.Customs(), nil); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return nil
}

func (e *Engine) DeleteCustomFanProfile(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	referenced := func(candidate string) bool {
		for _, p := range e.profiles.List() {
			if p.Fan.FanProfileID == candidate {
				return true
			}
		}
		return false
	}
	if err := e.fanProfiles.DeleteCustom(id, referenced); err != nil {
		return err
	}
	if err := e.store.Save("fan_profiles", envelopeVersion, e.fanProfiles.Customs(), nil); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return nil
}

// --- Keyboard profiles: same shape again, instantiated over KeyboardProfile.

func (e *Engine) ListKeyboardProfiles() []KeyboardProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyKeyboardProfiles(e.kbProfiles.List())
}

func (e *Engine) GetKeyboardProfile(id string) (KeyboardProfile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	kp, ok := e.kbProfiles.Get(id)
	if !ok {
		return KeyboardProfile{}, ucerr.New(ucerr.NotFound, "profile.GetKeyboardProfile", errors.Errorf("no such keyboard profile %s", id))
	}
	return *kp, nil
}

func (e *Engine) CreateCustomKeyboardProfile(kp KeyboardProfile) (KeyboardProfile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	kp.Builtin = false
	if err := kp.Validate(); err != nil {
		return KeyboardProfile{}, err
	}
	stored, err := e.kbProfiles.CreateCustom(&kp, e.newID)
	if err != nil {
		return KeyboardProfile{}, err
	}
	if err := e.store.Save("keyboard_profiles", envelopeVersion, e.kbProfiles.Customs(), nil); err != nil {
		return KeyboardProfile{}, err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return *stored, nil
}

func (e *Engine) UpdateCustomKeyboardProfile(id string, kp KeyboardProfile) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	kp.Builtin = false
	if err := kp.Validate(); err != nil {
		return err
	}
	if err := e.kbProfiles.UpdateCustom(id, &kp); err != nil {
		return err
	}
	if err := e.store.Save("keyboard_profiles", envelopeVersion, e.kbProfiles.Customs(), nil); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return nil
}

func (e *Engine) DeleteCustomKeyboardProfile(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	referenced := func(candidate string) bool {
		for _, p := range e.profiles.List() {
			if string(p.Keyboard) == candidate {
				return true
			}
		}
		return false
	}
	if err := e.kbProfiles.DeleteCustom(id, referenced); err != nil {
		return err
	}
	if err := e.store.Save("keyboard_profiles", envelopeVersion, e.kbProfiles.Customs(), nil); err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.ProfileCatalogChanged()
	}
	return nil
}

// apply runs the exact step order from §4.7. Steps that fail are
// logged and later steps still run; the first failure is returned.
func (e *Engine) apply(p *Profile) error {
	var firstErr error
	record := func(step string, err error) {
		if err == nil {
			return
		}
		e.log.WithError(err).WithField("step", step).Warn("profile apply step failed")
		if firstErr == nil {
			firstErr = errors.Wrapf(err, "profile apply: %s", step)
		}
	}

	if e.hal.CPU != nil {
		record("governor", e.hal.CPU.SetGovernor(p.CPU.Governor))
		record("epp", e.hal.CPU.SetEnergyPerformancePreference(p.CPU.EnergyPerformancePreference))
		record("online-core-count", e.hal.CPU.UseCores(p.CPU.OnlineCoreCount))
		if p.CPU.ScalingMinFreqKHz != 0 {
			record("min-freq", e.hal.CPU.SetMinFreq(p.CPU.ScalingMinFreqKHz))
		}
		if p.CPU.ScalingMaxFreqKHz != 0 {
			record("max-freq", e.hal.CPU.SetMaxFreq(p.CPU.ScalingMaxFreqKHz))
		}
		record("boost", e.hal.CPU.SetBoost(p.CPU.BoostEnabled))
	}

	if e.hal.ODM != nil && p.ODMMode != "" {
		record("odm-mode", e.hal.ODM.SetMode(p.ODMMode))
	}

	if e.hal.Charging != nil {
		record("charging-profile", e.hal.Charging.SetProfile(p.Charging.Profile))
		record("charging-priority", e.hal.Charging.SetPriority(p.Charging.Priority))
		if p.Charging.StartPct != 0 || p.Charging.StopPct != 0 {
			record("charging-thresholds", e.hal.Charging.SetThresholds(p.Charging.StartPct, p.Charging.StopPct))
		}
	}

	e.applyFanBinding(p, record)

	if !p.Keyboard.Empty() && e.hal.Keyboard != nil {
		if kp, ok := e.kbProfiles.Get(string(p.Keyboard)); ok {
			record("keyboard-brightness", e.hal.Keyboard.SetBrightness(kp.Brightness))
			record("keyboard-states", e.hal.Keyboard.SetStates(kp.States))
		} else {
			record("keyboard-profile", errors.Errorf("keyboard profile %s not found", p.Keyboard))
		}
	}

	if p.DisplayBrightnessPercent != nil && e.hal.Display != nil {
		record("display-brightness", e.hal.Display.SetPercent(*p.DisplayBrightnessPercent))
	}
	if p.WebcamOn != nil && e.hal.Webcam != nil {
		record("webcam", e.hal.Webcam.Set(*p.WebcamOn))
	}
	if p.FnLockOn != nil && e.hal.FnLock != nil {
		record("fn-lock", e.hal.FnLock.Set(*p.FnLockOn))
	}

	return firstErr
}

func (e *Engine) applyFanBinding(p *Profile, record func(string, error)) {
	if p.Fan.FanProfileID == "" || e.hal.Fan == nil {
		return
	}
	fp, ok := e.fanProfiles.Get(p.Fan.FanProfileID)
	if !ok {
		record("fan-binding", errors.Errorf("fan profile %s not found", p.Fan.FanProfileID))
		return
	}
	e.hal.Fan.ApplyCurves(fanctl.Curves{
		CPU:            fp.TableCPU,
		GPU:            fp.TableGPU,
		Pump:           fp.TablePump,
		WaterCoolerFan: fp.TableWaterCoolerFan,
		AutoControlWC:  p.Fan.AutoControlWC,
	})
}

func copyProfiles(in []*Profile) []Profile {
	out := make([]Profile, len(in))
	for i, p := range in {
		out[i] = *p
		if p.DisplayBrightnessPercent != nil {
			v := *p.DisplayBrightnessPercent
			out[i].DisplayBrightnessPercent = &v
		}
		if p.WebcamOn != nil {
			v := *p.WebcamOn
			out[i].WebcamOn = &v
		}
		if p.FnLockOn != nil {
			v := *p.FnLockOn
			out[i].FnLockOn = &v
		}
	}
	return out
}

func copyFanProfiles(in []*FanProfile) []FanProfile {
	out := make([]FanProfile, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}

func copyKeyboardProfiles(in []*KeyboardProfile) []KeyboardProfile {
	out := make([]KeyboardProfile, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}
