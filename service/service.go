// Package service hosts ptzengine.Engine as a Viam vision service, the
// module-shape half of SPEC_FULL.md's "Module shape and packaging" section:
// it pulls frames from a camera, runs a detector over them, feeds the
// resulting detections to the engine, and owns the CameraDriver the engine
// dispatches PTZ commands through.
package service

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/services/vision"
	vis "go.viam.com/rdk/vision"
	"go.viam.com/rdk/vision/classification"
	objdet "go.viam.com/rdk/vision/objectdetection"
	"go.viam.com/rdk/vision/viscapture"
	viamutils "go.viam.com/utils"

	ptzengine "github.com/viam-labs/ptz-multitracker/engine"
)

// ModelName is the name of the model.
const ModelName = "ptz-multitracker"

// Model is this module's colon-delimited-triplet.
var Model = resource.NewModel("viam-labs", "vision", ModelName)

func init() {
	resource.RegisterService(vision.API, Model, resource.Registration[vision.Service, *Config]{
		Constructor: newPTZTracker,
	})
}

// ptzTracker is the module's resource.Resource / vision.Service
// implementation. It owns one ptzengine.Engine and a goroutine pulling
// frames+detections into it, mirroring the shape of the teacher's myTracker.
type ptzTracker struct {
	resource.Named
	logger logging.Logger

	cancelFunc    context.CancelFunc
	cancelContext context.Context

	activeBackgroundWorkers sync.WaitGroup

	cam      camera.Camera
	camName  string
	detector vision.Service

	engine *ptzengine.Engine

	lastDetections atomic.Pointer[[]objdet.Detection]
	currImg        atomic.Pointer[image.Image]

	properties vision.Properties
}

func newPTZTracker(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (vision.Service, error) {
	t := &ptzTracker{
		Named:  conf.ResourceName().AsNamed(),
		logger: logger,
		properties: vision.Properties{
			ClassificationSupported: false,
			DetectionSupported:      true,
			ObjectPCDsSupported:     false,
		},
	}

	if err := t.Reconfigure(ctx, deps, conf); err != nil {
		return nil, err
	}

	cancelableCtx, cancel := context.WithCancel(context.Background())
	t.cancelFunc = cancel
	t.cancelContext = cancelableCtx

	if err := t.engine.Start(cancelableCtx); err != nil {
		cancel()
		return nil, errors.Wrap(err, "failed to start ptz tracking engine")
	}

	stream, err := t.cam.Stream(cancelableCtx, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	t.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(func() {
		t.run(stream, cancelableCtx)
	}, func() {
		stream.Close(cancelableCtx)
		t.activeBackgroundWorkers.Done()
	})

	return t, nil
}

// run is a cancelable loop: pull a frame, run the detector, convert
// detections to normalized engine input, submit. Mirrors the teacher's
// run loop, but feeds an engine instead of a Munkres matcher.
func (t *ptzTracker) run(stream interface {
	Next(context.Context) (image.Image, func(), error)
}, cancelableCtx context.Context) {
	for {
		select {
		case <-cancelableCtx.Done():
			return
		default:
		}

		img, release, err := stream.Next(cancelableCtx)
		if err != nil {
			t.logger.Errorf("ptz-multitracker: can't get image: %s", err)
			continue
		}
		if release != nil {
			defer release()
		}
		if img == nil {
			t.logger.Error("ptz-multitracker: got nil image")
			continue
		}
		t.currImg.Store(&img)

		dets, err := t.detector.Detections(cancelableCtx, img, nil)
		if err != nil {
			t.logger.Errorf("ptz-multitracker: can't get detections: %s", err)
			continue
		}
		t.lastDetections.Store(&dets)

		bounds := img.Bounds()
		fw, fh := bounds.Dx(), bounds.Dy()
		batch := make([]ptzengine.DetectionInput, 0, len(dets))
		for _, d := range dets {
			bb := d.BoundingBox()
			if bb == nil {
				continue
			}
			batch = append(batch, detectionToInput(*bb, d.Score(), d.Label(), fw, fh))
		}

		result := t.engine.SubmitDetections(batch, fw, fh, time.Now())
		if result.Rejected > 0 {
			t.logger.Debugf("ptz-multitracker: rejected %d of %d detections this frame", result.Rejected, len(batch))
		}
	}
}

// detectionToInput normalizes a pixel-space bounding box into the engine's
// [0,1] coordinate convention (spec.md §2: "Detections... in normalized
// image coordinates").
func detectionToInput(bb image.Rectangle, score float64, label string, frameW, frameH int) ptzengine.DetectionInput {
	w := float64(bb.Dx()) / float64(frameW)
	h := float64(bb.Dy()) / float64(frameH)
	cx := (float64(bb.Min.X) + float64(bb.Dx())/2) / float64(frameW)
	cy := (float64(bb.Min.Y) + float64(bb.Dy())/2) / float64(frameH)
	return ptzengine.DetectionInput{CX: cx, CY: cy, W: w, H: h, Confidence: score, ClassTag: label}
}

// Reconfigure reconfigures with new settings. On a config change the engine
// is rebuilt from the resolved preset/overrides; the background loop and its
// camera/detector handles are swapped under lock by the caller (resource
// graph guarantees Reconfigure is not called concurrently with Close).
func (t *ptzTracker) Reconfigure(ctx context.Context, deps resource.Dependencies, conf resource.Config) error {
	trackerConfig, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return errors.Errorf("could not assert proper config for %s", ModelName)
	}

	t.camName = trackerConfig.CameraName
	t.cam, err = camera.FromDependencies(deps, trackerConfig.CameraName)
	if err != nil {
		return errors.Wrapf(err, "unable to get camera %v for ptz tracker", trackerConfig.CameraName)
	}
	t.detector, err = vision.FromDependencies(deps, trackerConfig.DetectorName)
	if err != nil {
		return errors.Wrapf(err, "unable to get detector %v for ptz tracker", trackerConfig.DetectorName)
	}
	ptzRes, err := generic.FromDependencies(deps, trackerConfig.PTZName)
	if err != nil {
		return errors.Wrapf(err, "unable to get ptz head %v for ptz tracker", trackerConfig.PTZName)
	}

	engineCfg, err := trackerConfig.engineConfig()
	if err != nil {
		return err
	}

	engine, err := ptzengine.New(engineCfg, newGenericPTZDriver(ptzRes), t.logger)
	if err != nil {
		return errors.Wrap(err, "failed to build ptz tracking engine")
	}
	t.engine = engine
	return nil
}

// DetectionsFromCamera returns the most recent frame's raw detections (the
// detector's output, not the tracker's internal state) for API parity with
// the teacher's vision service.
func (t *ptzTracker) DetectionsFromCamera(ctx context.Context, cameraName string, extra map[string]interface{}) ([]objdet.Detection, error) {
	if cameraName != t.camName {
		return nil, errors.Errorf("camera name given to method, %v is not the same as configured camera %v", cameraName, t.camName)
	}
	return t.currentDetections(), nil
}

func (t *ptzTracker) Detections(ctx context.Context, img image.Image, extra map[string]interface{}) ([]objdet.Detection, error) {
	return t.currentDetections(), nil
}

func (t *ptzTracker) currentDetections() []objdet.Detection {
	p := t.lastDetections.Load()
	if p == nil {
		return []objdet.Detection{}
	}
	return *p
}

func (t *ptzTracker) ClassificationsFromCamera(ctx context.Context, cameraName string, n int, extra map[string]interface{}) (classification.Classifications, error) {
	return classification.Classifications{}, nil
}

func (t *ptzTracker) Classifications(ctx context.Context, img image.Image, n int, extra map[string]interface{}) (classification.Classifications, error) {
	return classification.Classifications{}, nil
}

func (t *ptzTracker) GetProperties(ctx context.Context, extra map[string]interface{}) (*vision.Properties, error) {
	return &t.properties, nil
}

func (t *ptzTracker) GetObjectPointClouds(ctx context.Context, cameraName string, extra map[string]interface{}) ([]*vis.Object, error) {
	return nil, errors.New("unimplemented")
}

func (t *ptzTracker) CaptureAllFromCamera(ctx context.Context, cameraName string, opt viscapture.CaptureOptions, extra map[string]interface{}) (viscapture.VisCapture, error) {
	var img image.Image
	if opt.ReturnImage {
		if cameraName != t.camName {
			return viscapture.VisCapture{}, errors.Errorf("camera name given to method, %v is not the same as configured camera %v", cameraName, t.camName)
		}
		if p := t.currImg.Load(); p != nil {
			img = *p
		}
	}
	var dets []objdet.Detection
	if opt.ReturnDetections {
		dets = t.currentDetections()
	}
	return viscapture.VisCapture{Image: img, Detections: dets}, nil
}

// DoCommand exposes the engine's status/control surface (spec.md §6):
// {"get_status": {}}, {"goto_preset": {"token": "..."}}, and
// {"emergency_stop": {}}.
func (t *ptzTracker) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	if _, ok := cmd["get_status"]; ok {
		out["status"] = statusToMap(t.engine.GetStatus())
	}
	if raw, ok := cmd["goto_preset"]; ok {
		args, _ := raw.(map[string]interface{})
		token, _ := args["token"].(string)
		if token == "" {
			return nil, errors.New("goto_preset requires a non-empty \"token\"")
		}
		if err := t.engine.GotoPreset(ctx, token); err != nil {
			return nil, errors.Wrap(err, "goto_preset")
		}
		out["goto_preset"] = "ok"
	}
	if _, ok := cmd["emergency_stop"]; ok {
		if err := t.engine.EmergencyStop(ctx); err != nil {
			return nil, errors.Wrap(err, "emergency_stop")
		}
		out["emergency_stop"] = "ok"
	}
	return out, nil
}

func statusToMap(s ptzengine.Status) map[string]interface{} {
	return map[string]interface{}{
		"session_id":     s.SessionID,
		"session_state":  s.SessionState.String(),
		"tracking_state": s.TrackingState.String(),
		"primary_id":     s.PrimaryID,
		"secondary_id":   s.SecondaryID,
		"zoom_level":     s.ZoomLevel,
		"pan":            s.Pan,
		"tilt":           s.Tilt,
		"num_tracks":     len(s.Tracks),
		"stats": map[string]interface{}{
			"total_detections_seen": s.Stats.TotalDetectionsSeen,
			"dispatches_ok":         s.Stats.DispatchesOK,
			"dispatches_failed":     s.Stats.DispatchesFailed,
			"switch_count":          s.Stats.SwitchCount,
			"zoom_change_count":     s.Stats.ZoomChangeCount,
			"detections_dropped":    s.Stats.DetectionsDropped,
			"dropped_for_capacity":  s.Stats.DroppedForCapacity,
		},
	}
}

// Close stops the engine and the frame-ingestion loop.
func (t *ptzTracker) Close(ctx context.Context) error {
	t.cancelFunc()
	t.activeBackgroundWorkers.Wait()
	return t.engine.Stop(ctx)
}
