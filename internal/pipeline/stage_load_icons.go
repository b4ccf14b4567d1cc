package pipeline

import (
	"context"
	"image"
)

// runLoadIcons decodes every shortlisted catalog icon file exactly once,
// deduplicating paths shared across slots before dispatching one
// worker-pool task per unique file (§5).
func runLoadIcons(ctx context.Context, o *Orchestrator, state *RunState, window ProgressWindow) error {
	seen := make(map[string]bool)
	var paths []string
	for _, bySlot := range state.Shortlist {
		for _, candidates := range bySlot {
			for _, c := range candidates {
				if !seen[c.FilePath] {
					seen[c.FilePath] = true
					paths = append(paths, c.FilePath)
				}
			}
		}
	}

	results, errs := Map(ctx, o.pool, paths, o.cfg.ChunkSize,
		func(ctx context.Context, path string) (image.Image, error) {
			return o.cfg.IconLoader.LoadIcon(ctx, path)
		},
		func(done, total int) {
			o.cfg.Callbacks.OnProgress(StageLoadIcons, window.Scale(float64(done)/float64(maxInt(total, 1))))
		},
	)

	for i, err := range errs {
		if err != nil {
			return newStageError(kindCargo, StageLoadIcons, err)
		}
		state.LoadedIcons[paths[i]] = results[i]
	}
	return nil
}
