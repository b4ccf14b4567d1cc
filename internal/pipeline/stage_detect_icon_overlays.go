package pipeline

import (
	"context"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// runDetectIconOverlays runs the barcode-stripe overlay detector against
// every slot's ROI, one worker-pool task per slot (§5).
func runDetectIconOverlays(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	refs := slotRefs(state)

	results, errs := Map(ctx, o.pool, refs, o.cfg.ChunkSize,
		func(ctx context.Context, r slotRef) (catalogmodel.OverlayDetection, error) {
			if r.slot.ROI == nil {
				return catalogmodel.OverlayDetection{OverlayName: "common", Method: "fallback"}, nil
			}
			detections := o.cfg.OverlayDetector.DetectSlot(r.slot.ROI)
			if len(detections) == 0 {
				return catalogmodel.OverlayDetection{OverlayName: "common", Method: "fallback"}, nil
			}
			return detections[0], nil
		},
		func(done, total int) {
			o.cfg.Callbacks.OnProgress(StageDetectIconOverlays, window.Scale(float64(done)/float64(maxInt(total, 1))))
		},
	)

	for i, err := range errs {
		if err != nil {
			return newStageError(kindMatch, StageDetectIconOverlays, err)
		}
		r := refs[i]
		if state.OverlayDetections[r.group] == nil {
			state.OverlayDetections[r.group] = make(map[int]catalogmodel.OverlayDetection)
		}
		state.OverlayDetections[r.group][r.slotIndex] = results[i]
	}
	return nil
}
