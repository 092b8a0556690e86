package stream

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// MTLStreamer decodes Wavefront MTL material libraries: a sequence of
// "newmtl <name>" blocks, each followed by Ka/Kd/Ks/Ns/map_Kd/map_Ka
// lines. It supports only CapLoadMaterial, for the "mtl" extension.
type MTLStreamer struct{ Base }

const mtlExtension = "mtl"

func (MTLStreamer) Capabilities(extension string) Capability {
	if extension == mtlExtension {
		return CapLoadMaterial
	}
	return 0
}

// LoadMaterials scans input line by line, accumulating fields into the
// material named by the most recent "newmtl" line and flushing it to
// the result whenever a new "newmtl" is seen or input ends.
// Unrecognized keywords (comments included) are silently skipped, per
// the original format's tolerance for vendor extensions.
func (MTLStreamer) LoadMaterials(r io.Reader) ([]Material, error) {
	var out []Material
	var cur Material
	var have bool

	flush := func() {
		if have && cur.Name != "" {
			out = append(out, cur)
		}
		cur = Material{}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "newmtl"):
			flush()
			cur.Name = strings.TrimSpace(line[len("newmtl"):])
			have = true
		case strings.HasPrefix(line, "Ka"):
			cur.Ambient = strings.TrimSpace(line[len("Ka"):])
		case strings.HasPrefix(line, "Kd"):
			cur.Diffuse = strings.TrimSpace(line[len("Kd"):])
		case strings.HasPrefix(line, "Ks"):
			cur.Specular = strings.TrimSpace(line[len("Ks"):])
		case strings.HasPrefix(line, "Ns"):
			cur.Shininess = strings.TrimSpace(line[len("Ns"):])
		case strings.HasPrefix(line, "map_Kd"), strings.HasPrefix(line, "map_Ka"):
			rest := strings.TrimSpace(line[len("map_Kd"):])
			if strings.HasPrefix(rest, "-o") {
				fields := strings.Fields(strings.TrimSpace(rest[len("-o"):]))
				if len(fields) >= 2 {
					if x, err := strconv.ParseFloat(fields[0], 32); err == nil {
						cur.TextureOffsetX = float32(x)
					}
					if y, err := strconv.ParseFloat(fields[1], 32); err == nil {
						cur.TextureOffsetY = float32(y)
					}
					rest = strings.TrimSpace(strings.Join(fields[2:], " "))
				}
			}
			cur.Texture = rest
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}
