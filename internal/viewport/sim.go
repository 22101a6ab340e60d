package viewport

import (
	"math"
	"sync"

	"github.com/pano-hotspots/backend/internal/models"
	"github.com/pano-hotspots/backend/internal/render"
)

// Class names used on the sim's element tree.
const (
	ContainerClass = "pnlm-container"
	HotspotClass   = "pnlm-hotspot-base"
	EventClick     = "click"
)

// Sim is an in-memory Viewport. Hotspot containers are mounted and their
// tooltips built at construction. State reported by a remote viewer is fed
// in with Apply and its events with Fire.
type Sim struct {
	mu         sync.Mutex
	mount      *render.Element
	container  *render.Element
	cfg        Config
	pitch      float64
	yaw        float64
	hfov       float64
	autoRotate float64
	fullscreen bool
	destroyed  bool
	listeners  map[string][]Handler
	hotspots   map[string]*render.Element
	tooltips   map[string]*render.Element
	order      []string
}

var _ Viewport = (*Sim)(nil)

// NewSim mounts a viewer on mount. Only one live viewer may occupy a mount.
func NewSim(mount *render.Element, cfg Config) (*Sim, error) {
	if mount == nil {
		return nil, ErrNoMount
	}
	if cfg.ImageURL == "" {
		return nil, ErrNoImage
	}
	for _, c := range mount.Children {
		if c.HasClass(ContainerClass) {
			return nil, ErrMountBusy
		}
	}

	s := &Sim{
		mount:      mount,
		cfg:        cfg,
		pitch:      cfg.InitialPitch,
		yaw:        cfg.InitialYaw,
		hfov:       cfg.HFOV,
		autoRotate: cfg.AutoRotateSpeed,
		listeners:  make(map[string][]Handler),
		hotspots:   make(map[string]*render.Element),
		tooltips:   make(map[string]*render.Element),
	}

	s.container = render.NewElement("div")
	s.container.Class = ContainerClass
	s.container.Attrs["data-panorama"] = cfg.ImageURL
	mount.Append(s.container)

	for _, m := range cfg.Markers {
		div := render.NewElement("div")
		div.Class = HotspotClass
		if m.CSSClass != "" {
			div.Class += " " + m.CSSClass
		}
		div.Attrs["data-hotspot-id"] = m.ID
		s.container.Append(div)
		if m.Click != nil {
			div.On(EventClick, m.Click)
		}
		if m.CreateTooltip != nil {
			s.tooltips[m.ID] = m.CreateTooltip(div)
		}
		s.hotspots[m.ID] = div
		s.order = append(s.order, m.ID)
	}
	return s, nil
}

// NewSimFactory returns a Factory building Sims. Each constructed Sim is
// passed to observe, if set.
func NewSimFactory(observe func(*Sim)) Factory {
	return func(mount *render.Element, cfg Config) (Viewport, error) {
		s, err := NewSim(mount, cfg)
		if err != nil {
			return nil, err
		}
		if observe != nil {
			observe(s)
		}
		return s, nil
	}
}

// Destroy unmounts the viewer and drops every listener.
func (s *Sim) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.mount.Remove(s.container)
	s.listeners = make(map[string][]Handler)
}

// Destroyed reports whether Destroy was called.
func (s *Sim) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Sim) Pitch() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pitch
}

func (s *Sim) SetPitch(pitch float64, animated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.destroyed {
		s.pitch = math.Min(math.Max(pitch, models.MinPitch), models.MaxPitch)
	}
}

func (s *Sim) Yaw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.yaw
}

func (s *Sim) SetYaw(yaw float64, animated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.destroyed {
		s.yaw = math.Min(math.Max(yaw, models.MinYaw), models.MaxYaw)
	}
}

func (s *Sim) HFOV() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hfov
}

// SetHFOV clamps hfov to the configured range and fires zoomchange.
func (s *Sim) SetHFOV(hfov float64, animated bool) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	if s.cfg.MinHFOV > 0 {
		hfov = math.Max(hfov, s.cfg.MinHFOV)
	}
	if s.cfg.MaxHFOV > 0 {
		hfov = math.Min(hfov, s.cfg.MaxHFOV)
	}
	changed := hfov != s.hfov
	s.hfov = hfov
	s.mu.Unlock()

	if changed {
		s.Fire(EventZoomChange, hfov)
	}
}

func (s *Sim) StartAutoRotate(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoRotate = speed
}

func (s *Sim) StopAutoRotate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoRotate = 0
}

// AutoRotateSpeed returns the current rotation speed; 0 when stopped.
func (s *Sim) AutoRotateSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoRotate
}

func (s *Sim) ToggleFullscreen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen = !s.fullscreen
}

// Fullscreen reports the fullscreen toggle state.
func (s *Sim) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

func (s *Sim) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.destroyed {
		s.listeners[event] = append(s.listeners[event], h)
	}
}

// Listeners returns the number of handlers registered for event.
func (s *Sim) Listeners(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[event])
}

// Config returns the construction record.
func (s *Sim) Config() Config {
	return s.cfg
}

// Apply overwrites the view state with values reported by a remote viewer.
// Values are taken as reported, including invalid zoom readings.
func (s *Sim) Apply(v models.ViewState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.pitch, s.yaw, s.hfov = v.Pitch, v.Yaw, v.HFOV
}

// Fire runs the handlers for event synchronously. Handlers are invoked
// without the sim lock held so they may query the viewer.
func (s *Sim) Fire(event string, args ...any) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	hs := append([]Handler(nil), s.listeners[event]...)
	s.mu.Unlock()

	for _, h := range hs {
		h(args...)
	}
}

// Click dispatches a click on the hotspot container with id.
func (s *Sim) Click(id string) error {
	div, err := s.hotspot(id)
	if err != nil {
		return err
	}
	div.Dispatch(EventClick)
	return nil
}

// Hover dispatches pointer enter or leave on the hotspot's marker children.
// The handlers mutate the element tree, so callers must serialise Hover with
// anything reading that tree.
func (s *Sim) Hover(id string, enter bool) error {
	div, err := s.hotspot(id)
	if err != nil {
		return err
	}
	event := render.EventPointerLeave
	if enter {
		event = render.EventPointerEnter
	}
	for _, c := range div.Children {
		c.Dispatch(event)
		for _, cc := range c.Children {
			cc.Dispatch(event)
		}
	}
	return nil
}

func (s *Sim) hotspot(id string) (*render.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, ErrDestroyed
	}
	div, ok := s.hotspots[id]
	if !ok {
		return nil, &UnknownHotspotError{ID: id}
	}
	return div, nil
}

// Hotspots returns the mounted hotspot containers in marker order.
func (s *Sim) Hotspots() []*render.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*render.Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.hotspots[id])
	}
	return out
}

// Tooltip returns the element returned by the marker's tooltip callback.
func (s *Sim) Tooltip(id string) (*render.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tooltips[id]
	return t, ok
}

// UnknownHotspotError is returned for events naming a hotspot the viewer
// does not host.
type UnknownHotspotError struct {
	ID string
}

func (e *UnknownHotspotError) Error() string {
	return "viewport: unknown hotspot " + e.ID
}
