package service

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/rdk/resource"

	ptzengine "github.com/viam-labs/ptz-multitracker/engine"
)

// genericPTZDriver adapts a generic Viam resource's DoCommand into
// ptzengine.CameraDriver, the "Polymorphic camera driver" design note in
// spec.md §9: the engine never talks to the PTZ head directly, only through
// this small interface, so a generic DoCommand-driven resource and the
// onvifptz.Driver are interchangeable.
type genericPTZDriver struct {
	res resource.Resource
}

func newGenericPTZDriver(res resource.Resource) *genericPTZDriver {
	return &genericPTZDriver{res: res}
}

func (d *genericPTZDriver) ContinuousMove(ctx context.Context, pan, tilt float64) error {
	_, err := d.res.DoCommand(ctx, map[string]interface{}{
		"continuous_move": map[string]interface{}{"pan": pan, "tilt": tilt},
	})
	return errors.Wrap(err, "ptz continuous_move")
}

func (d *genericPTZDriver) AbsoluteMove(ctx context.Context, zoom float64) error {
	_, err := d.res.DoCommand(ctx, map[string]interface{}{
		"absolute_move": map[string]interface{}{"zoom": zoom},
	})
	return errors.Wrap(err, "ptz absolute_move")
}

func (d *genericPTZDriver) GotoPreset(ctx context.Context, token string) error {
	_, err := d.res.DoCommand(ctx, map[string]interface{}{
		"goto_preset": map[string]interface{}{"token": token},
	})
	return errors.Wrap(err, "ptz goto_preset")
}

func (d *genericPTZDriver) Stop(ctx context.Context, panTilt, zoom bool) error {
	_, err := d.res.DoCommand(ctx, map[string]interface{}{
		"stop": map[string]interface{}{"pan_tilt": panTilt, "zoom": zoom},
	})
	return errors.Wrap(err, "ptz stop")
}

var _ ptzengine.CameraDriver = (*genericPTZDriver)(nil)
