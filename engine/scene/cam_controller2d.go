package scene

import "github.com/hubastard/thicket/engine/core"

// OrthoController2D: WASD pan, scroll to zoom.
type OrthoController2D struct {
	MoveSpeed float32
	ZoomStep  float32
	Camera    *OrthoCamera2D
}

func NewOrthoController2D(cam *OrthoCamera2D) *OrthoController2D {
	return &OrthoController2D{
		MoveSpeed: 160,
		ZoomStep:  1.1,
		Camera:    cam,
	}
}

func (cc *OrthoController2D) Update(e *core.Engine, dt float32) {
	in := e.Input
	speed := cc.MoveSpeed * dt / cc.Camera.Zoom

	if in.IsKeyDown(core.KeyW) {
		cc.Camera.Move(0, -speed)
	}
	if in.IsKeyDown(core.KeyS) {
		cc.Camera.Move(0, speed)
	}
	if in.IsKeyDown(core.KeyA) {
		cc.Camera.Move(-speed, 0)
	}
	if in.IsKeyDown(core.KeyD) {
		cc.Camera.Move(speed, 0)
	}
}

// HandleEvent consumes scroll events for zoom; returns true when handled.
func (cc *OrthoController2D) HandleEvent(_ *core.Engine, ev core.Event) bool {
	sc, ok := ev.(core.EventScroll)
	if !ok {
		return false
	}
	if sc.Yoff > 0 {
		cc.Camera.SetZoom(cc.Camera.Zoom * cc.ZoomStep)
	} else if sc.Yoff < 0 {
		cc.Camera.SetZoom(cc.Camera.Zoom / cc.ZoomStep)
	}
	return true
}
