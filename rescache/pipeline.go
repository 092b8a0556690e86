package rescache

import (
	"fmt"

	"github.com/rtcore/rtcore/driver"
)

const prefix = "rescache: "

// Pipeline returns the graphics pipeline for key, building it from
// state if no pipeline with that structural hash has been cached yet.
// This driver has no notion of a derivative/parent pipeline to speed
// up creation (NewPipeline takes only a state), so there is nothing
// for a parent argument to plumb into; callers that track a logical
// parent pipeline (for PSO derivation in the original engine's sense)
// need only fold any state it implies into key.
func (c *Cache) Pipeline(key PipelineKey, state *driver.GraphState) (Handle[driver.Pipeline], error) {
	h, err := c.pipelines.getOrCreate(key.Hash(), func() (driver.Pipeline, error) {
		p, err := c.gpu.NewPipeline(state)
		if err != nil {
			return nil, fmt.Errorf(prefix+"Pipeline: %w", err)
		}
		return p, nil
	})
	return h, err
}

// ComputePipeline returns the compute pipeline for key, building it
// from state if no pipeline with that structural hash has been
// cached yet.
func (c *Cache) ComputePipeline(key ComputeKey, state *driver.CompState) (Handle[driver.Pipeline], error) {
	h, err := c.pipelines.getOrCreate(key.Hash(), func() (driver.Pipeline, error) {
		p, err := c.gpu.NewPipeline(state)
		if err != nil {
			return nil, fmt.Errorf(prefix+"ComputePipeline: %w", err)
		}
		return p, nil
	})
	return h, err
}
