package rescache

import (
	"fmt"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/storage"
)

// RenderPass returns the render pass for the given framebuffer
// format, clear flags and the prior usage of each attachment,
// building it if no pass with this exact structural key has been
// cached yet. lastColorUsages must have one entry per format.Color
// attachment; lastDepthUsage is ignored when format.Depth is nil.
//
// A prior usage of storage.Undefined means the attachment's content
// does not need preserving, so the pass loads it with LDontCare
// unless clear is requested; any other prior usage means the
// attachment already holds live content and must be loaded with
// LLoad. Every attachment is stored (SStore), since a rendering
// context always needs the result for a later read, blit or present.
func (c *Cache) RenderPass(format FramebufferFormat, clearColor, clearDepth, clearStencil bool, lastColorUsages []storage.ResourceUsage, lastDepthUsage storage.ResourceUsage) (Handle[driver.RenderPass], error) {
	w := newHasher()
	format.hash(w)
	w.putBool(clearColor)
	w.putBool(clearDepth)
	w.putBool(clearStencil)
	w.putInt(len(lastColorUsages))
	for _, u := range lastColorUsages {
		w.putInt(int(u))
	}
	w.putInt(int(lastDepthUsage))

	return c.renderPasses.getOrCreate(w.sum(), func() (driver.RenderPass, error) {
		atts := make([]driver.Attachment, 0, len(format.Color)+1)
		color := make([]int, len(format.Color))
		for i, cf := range format.Color {
			color[i] = i
			atts = append(atts, driver.Attachment{
				Format:  cf.Pixel,
				Samples: cf.Samples,
				Load:    [2]driver.LoadOp{loadOp(clearColor, lastColorUsages[i]), driver.LDontCare},
				Store:   [2]driver.StoreOp{driver.SStore, driver.SDontCare},
			})
		}
		ds := -1
		if format.Depth != nil {
			ds = len(atts)
			atts = append(atts, driver.Attachment{
				Format:  format.Depth.Pixel,
				Samples: format.Depth.Samples,
				Load:    [2]driver.LoadOp{loadOp(clearDepth, lastDepthUsage), loadOp(clearStencil, lastDepthUsage)},
				Store:   [2]driver.StoreOp{driver.SStore, driver.SStore},
			})
		}
		sub := []driver.Subpass{{Color: color, DS: ds, Wait: true}}
		p, err := c.gpu.NewRenderPass(atts, sub)
		if err != nil {
			return nil, fmt.Errorf(prefix+"RenderPass: %w", err)
		}
		return p, nil
	})
}

func loadOp(clear bool, last storage.ResourceUsage) driver.LoadOp {
	switch {
	case clear:
		return driver.LClear
	case last != storage.Undefined:
		return driver.LLoad
	default:
		return driver.LDontCare
	}
}

// Framebuffer returns the framebuffer binding views to pass, building
// it if no framebuffer with this exact (views, size, pass) key has
// been cached yet. views must be given in the render pass's
// attachment order.
func (c *Cache) Framebuffer(views []driver.ImageView, width, height, layers int, pass Handle[driver.RenderPass]) (Handle[driver.Framebuf], error) {
	w := newHasher()
	w.putUint64(pass.Hash())
	w.putInt(len(views))
	for _, v := range views {
		w.putPointer(v)
	}
	w.putInt(width)
	w.putInt(height)
	w.putInt(layers)

	return c.framebuffers.getOrCreate(w.sum(), func() (driver.Framebuf, error) {
		fb, err := pass.Native().NewFB(views, width, height, layers)
		if err != nil {
			return nil, fmt.Errorf(prefix+"Framebuffer: %w", err)
		}
		return fb, nil
	})
}
