package ptzengine

// predictTargetPosition returns the position the controller should aim at
// for the current primary track (C6, spec.md §4.6): the short-horizon linear
// extrapolation if prediction is enabled and the track is moving, otherwise
// the last observed position. Prediction never mutates the track store.
func predictTargetPosition(tr *Track, cfg Config) Position {
	if !cfg.Motion.Prediction || !tr.Moving {
		return tr.LastPosition()
	}
	return Predict(tr.LastPosition(), tr.VX, tr.VY, cfg.Motion.PredictionHorizon)
}
